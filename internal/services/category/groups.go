package category

// Group buckets categories that share persuasion vocabulary.
type Group string

const (
	GroupBeautyHealth Group = "beauty_health"
	GroupFitness      Group = "fitness_sport"
	GroupElectronics  Group = "electronics_gaming"
	GroupBooks        Group = "books_media"
	GroupGeneric      Group = "generic"
)

var groups = map[string]Group{
	Beauty:      GroupBeautyHealth,
	Skincare:    GroupBeautyHealth,
	Supplements: GroupBeautyHealth,
	Health:      GroupBeautyHealth,
	Fitness:     GroupFitness,
	Sports:      GroupFitness,
	Electronics: GroupElectronics,
	Headphones:  GroupElectronics,
	Speakers:    GroupElectronics,
	Phone:       GroupElectronics,
	Laptop:      GroupElectronics,
	Tablet:      GroupElectronics,
	Smartwatch:  GroupElectronics,
	Camera:      GroupElectronics,
	TV:          GroupElectronics,
	Gaming:      GroupElectronics,
	Books:       GroupBooks,
}

// GroupOf returns the group of a category; unknown categories are generic.
func GroupOf(category string) Group {
	if g, ok := groups[category]; ok {
		return g
	}
	return GroupGeneric
}
