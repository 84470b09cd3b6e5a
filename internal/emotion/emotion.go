// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package emotion

// Name identifies a recognized emotion class from the upstream classifier.
type Name string

// Recognized emotion classes. Unrecognized names are dropped from energy
// computation but still eligible as the dominant emotion.
const (
	Happy     Name = "happy"
	Surprised Name = "surprised"
	Neutral   Name = "neutral"
	Angry     Name = "angry"
	Disgusted Name = "disgusted"
	Fearful   Name = "fearful"
	Sad       Name = "sad"
)

// energyWeights maps each recognized emotion to its arousal contribution.
// High-arousal positive emotions push energy up, low-arousal negative
// emotions pull it down.
var energyWeights = map[Name]float64{
	Happy:     0.8,
	Surprised: 0.7,
	Neutral:   0.5,
	Angry:     0.4,
	Disgusted: 0.3,
	Fearful:   0.2,
	Sad:       0.1,
}

// EnergyWeight returns the arousal weight for a recognized emotion.
// The second return is false for unrecognized names.
func EnergyWeight(n Name) (float64, bool) {
	w, ok := energyWeights[n]
	return w, ok
}

// Recognized reports whether n is a known emotion class.
func Recognized(n Name) bool {
	_, ok := energyWeights[n]
	return ok
}

// Reading is a single (emotion, probability) observation. Readings are
// ordered; first-seen order breaks ties when selecting the dominant emotion.
type Reading struct {
	Name        Name    `json:"name"`
	Probability float64 `json:"probability"`
}

// Dominant is the highest-probability emotion in the original input.
type Dominant struct {
	Name        Name    `json:"name"`
	Probability float64 `json:"probability"`
}

// Context is the normalized emotion and energy snapshot driving a single
// recommendation or notification decision. It is derived per request and
// never persisted.
type Context struct {
	// Emotions holds the valid readings that informed this context,
	// in input order.
	Emotions []Reading `json:"emotions"`

	// EnergyLevel is the inferred alertness in [0, 1].
	EnergyLevel float64 `json:"energy_level"`

	// Dominant is the strongest emotion in the original input.
	Dominant Dominant `json:"dominant"`
}

// Probability returns the probability recorded for the named emotion,
// or 0 if the context carries no reading for it.
func (c Context) Probability(n Name) float64 {
	for _, r := range c.Emotions {
		if r.Name == n {
			return r.Probability
		}
	}
	return 0
}
