package anonymizer

// NERBackend is a pluggable named-entity backend for the optional model
// signal. Implementations may use ONNX Runtime or other engines.
//
// The default build (no tags) provides no backend; the signal then
// contributes zero score with an "ner_unavailable" tag instead of aborting
// classification.
type NERBackend interface {
	// ScorePerson returns the model's confidence in [0, 1] that text is a
	// person name.
	ScorePerson(text string) (float64, error)
	// IsReady returns whether the backend is initialized and ready.
	IsReady() bool
	// Close releases any native resources.
	Close() error
}

// nerSignal adapts a NERBackend into the signal list. A missing or failing
// backend degrades to a zero contribution, never an error.
type nerSignal struct {
	backend NERBackend
}

func (s *nerSignal) Name() string { return "ner" }

func (s *nerSignal) Score(candidate string) (float64, []string) {
	if s.backend == nil || !s.backend.IsReady() {
		return 0, []string{"ner_unavailable"}
	}
	confidence, err := s.backend.ScorePerson(candidate)
	if err != nil {
		return 0, []string{"ner_unavailable"}
	}
	if confidence < 0.5 {
		return 0, nil
	}
	// Capped below the lexicon weight; the model corroborates, it does not
	// decide alone.
	return (confidence - 0.5) * 0.6, []string{"ner_entity"}
}
