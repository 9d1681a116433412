package usecase

import (
	domsvc "ImpulseSaver/internal/domain/service"
)

// Engine groups the pure scoring components used by one analysis.
type Engine struct {
	Scorer     domsvc.DealScorer
	Detector   domsvc.ManipulationDetector
	Classifier domsvc.CategoryClassifier
	Composer   domsvc.ImpulseComposer
	Ranker     domsvc.AlternativeRanker
}

func NewEngine(scorer domsvc.DealScorer, detector domsvc.ManipulationDetector, classifier domsvc.CategoryClassifier, composer domsvc.ImpulseComposer, ranker domsvc.AlternativeRanker) *Engine {
	return &Engine{Scorer: scorer, Detector: detector, Classifier: classifier, Composer: composer, Ranker: ranker}
}
