// Package category assigns a product title to one tag from a closed,
// ordered rule table. The first rule with a matching keyword wins.
package category

import (
	"strings"

	domsvc "ImpulseSaver/internal/domain/service"
)

const (
	Headphones  = "headphones"
	Speakers    = "speakers"
	Phone       = "phone"
	Laptop      = "laptop"
	Tablet      = "tablet"
	Smartwatch  = "smartwatch"
	Camera      = "camera"
	TV          = "tv"
	Gaming      = "gaming"
	Coffee      = "coffee"
	Kitchen     = "kitchen"
	Vacuum      = "vacuum"
	Home        = "home"
	Skincare    = "skincare"
	Beauty      = "beauty"
	Supplements = "supplements"
	Health      = "health"
	Fitness     = "fitness"
	Sports      = "sports"
	Shoes       = "shoes"
	Clothing    = "clothing"
	Jewelry     = "jewelry"
	Watches     = "watches"
	Bags        = "bags"
	Pets        = "pets"
	Baby        = "baby"
	Automotive  = "automotive"
	Toys        = "toys"
	Office      = "office"
	Books       = "books"
	Tools       = "tools"
	Electronics = "electronics"
	General     = "general"
)

// Rule maps any of its keywords (lowercase substrings) to a category.
type Rule struct {
	Category string
	Keywords []string
}

// DefaultRules is the production rule table. Specific categories precede the
// broad buckets they overlap with.
func DefaultRules() []Rule {
	return []Rule{
		{Headphones, []string{"headphone", "earbud", "earphone", "airpods", "headset", "ear buds", "in-ear", "over-ear"}},
		{Speakers, []string{"speaker", "soundbar", "subwoofer", "microphone", "boombox"}},
		{Phone, []string{"iphone", "smartphone", "phone", "galaxy s", "pixel 8", "pixel 9", "unlocked 5g"}},
		{Laptop, []string{"laptop", "macbook", "chromebook", "ultrabook", "notebook computer", "notebook pc"}},
		{Tablet, []string{"tablet", "ipad", "kindle", "e-reader", "galaxy tab"}},
		{Smartwatch, []string{"smartwatch", "smart watch", "apple watch", "fitness tracker", "fitbit", "galaxy watch"}},
		{Camera, []string{"camera", "dslr", "mirrorless", "gopro", "webcam", "camcorder"}},
		{TV, []string{"television", " tv", "tv ", "oled", "qled", "roku", "fire stick", "streaming stick", "projector"}},
		{Gaming, []string{"gaming", "playstation", "xbox", "nintendo", "ps5", "controller", "video game", "gamer"}},
		{Coffee, []string{"coffee", "espresso", "keurig", "nespresso", "french press", "latte", "cold brew"}},
		{Kitchen, []string{"blender", "air fryer", "cookware", "knife set", "toaster", "stand mixer", "instant pot", "pressure cooker", "kitchen", "frying pan", "skillet", "microwave", "dutch oven"}},
		{Vacuum, []string{"vacuum", "roomba", "robot vac", "carpet cleaner", "steam mop"}},
		{Home, []string{"bedding", "pillow", "mattress", "bed sheet", "curtain", "desk lamp", "floor lamp", "table lamp", "lampshade", "furniture", "area rug", "runner rug", "bath rug", "towel", "candle", "home decor", "storage bin", "shelf", "sofa", "duvet"}},
		{Skincare, []string{"serum", "moisturizer", "cleanser", "sunscreen", "retinol", "skincare", "skin care", "face cream", "toner", "anti-aging", "hyaluronic"}},
		{Beauty, []string{"makeup", "mascara", "lipstick", "foundation", "eyeshadow", "perfume", "fragrance", "nail polish", "hair dryer", "straightener", "curling iron", "shampoo", "conditioner", "beauty"}},
		{Supplements, []string{"vitamin", "supplement", "protein powder", "collagen", "probiotic", "omega-3", "creatine", "fish oil", "gummies", "melatonin"}},
		{Health, []string{"thermometer", "blood pressure", "first aid", "massager", "toothbrush", "humidifier", "air purifier", "health", "medical", "oximeter", "heating pad"}},
		{Fitness, []string{"dumbbell", "kettlebell", "yoga mat", "treadmill", "resistance band", "exercise bike", "workout", "fitness", "weight bench", "gym", "jump rope"}},
		{Sports, []string{"basketball", "football", "soccer", "tennis", "golf", "baseball", "bicycle", "camping", "hiking", "fishing", "sports", "skateboard"}},
		{Shoes, []string{"shoe", "sneaker", "boots", "sandals", "slippers", "loafers", "heels", "cleats"}},
		{Clothing, []string{"shirt", "dress", "jacket", "hoodie", "jeans", "pants", "sweater", "leggings", "socks", "coat", "shorts", "underwear", "pajama"}},
		{Jewelry, []string{"necklace", "bracelet", "earring", "engagement ring", "wedding ring", "diamond ring", "pendant", "jewelry", "anklet"}},
		{Watches, []string{"wristwatch", "watch", "chronograph", "rolex", "casio", "seiko"}},
		{Bags, []string{"backpack", "handbag", "purse", "tote", "luggage", "suitcase", "wallet", "duffel"}},
		{Pets, []string{"dog", "puppy", "kitten", "cat food", "cat litter", "cat tree", "cat toy", "for cats", "pet ", "pets", "aquarium", "litter box", "leash"}},
		{Baby, []string{"baby", "infant", "toddler", "diaper", "stroller", "pacifier", "crib", "car seat", "nursery", "newborn"}},
		{Automotive, []string{"car charger", "dash cam", "dashcam", "tire", "automotive", "motor oil", "jump starter", "windshield", "car mount", "car wash"}},
		{Toys, []string{"toy", "lego", "puzzle", "doll", "action figure", "board game", "plush", "stuffed animal"}},
		{Office, []string{"printer", "stapler", "office", "notebook", "notepad", "printer ink", "label maker", "planner", "ballpoint", "gel pen", "fountain pen", "desk organizer"}},
		{Books, []string{"book", "novel", "hardcover", "paperback", "audiobook", "edition", "cookbook"}},
		{Tools, []string{"drill", "screwdriver", "wrench", "tool set", "toolkit", "circular saw", "hammer", "multimeter", "socket set", "power tool", "tool box"}},
		{Electronics, []string{"charger", "cable", "usb", "bluetooth", "wireless", "power bank", "router", "monitor", "keyboard", "mouse", "hdmi", "ssd", "hard drive", "electronic", "adapter", "battery", "smart home", "echo dot", "alexa"}},
	}
}

// Classifier is a first-match-wins keyword classifier.
type Classifier struct {
	rules []Rule
}

// NewClassifier uses the production rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewClassifierWithRules uses a custom rule table, in order.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the category of the first matching rule, or General.
func (c *Classifier) Classify(title string) string {
	t := strings.ToLower(title)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(t, kw) {
				return r.Category
			}
		}
	}
	return General
}

// Categories lists every tag the rule table can produce, ending with General.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, General)
}

var _ domsvc.CategoryClassifier = (*Classifier)(nil)
