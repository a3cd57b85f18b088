package predict

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scorer produces a churn estimate for one node of a feature graph.
// nodes is the full feature matrix including the query node; edges are
// directed (from, to) index pairs into nodes.
type Scorer interface {
	Score(nodes [][]float64, edges [][2]int, query int) (float64, error)
}

// Artifact is the frozen model file: a one-hop linear aggregator with a
// standard scaler, exported from the training pipeline as JSON.
type Artifact struct {
	InChannels      int       `json:"in_channels"`
	TextDim         int       `json:"text_dim"`
	SelfWeights     []float64 `json:"self_weights"`
	NeighborWeights []float64 `json:"neighbor_weights"`
	Bias            float64   `json:"bias"`
	ScaleMean       []float64 `json:"scale_mean"`
	ScaleStd        []float64 `json:"scale_std"`
}

// LinearScorer scores a node as bias + w_self·x + w_neigh·mean(neighbors),
// the linearization of one GraphSAGE mean-aggregation layer. Inputs are
// standardized with the artifact's scaler before the dot products.
type LinearScorer struct {
	art Artifact
}

// LoadScorer reads a model artifact from path.
func LoadScorer(path string) (*LinearScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model artifact: %w", err)
	}
	return NewScorer(data)
}

// NewScorer builds a scorer from raw artifact JSON.
func NewScorer(data []byte) (*LinearScorer, error) {
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if art.InChannels <= 0 {
		return nil, fmt.Errorf("model artifact: in_channels must be positive, got %d", art.InChannels)
	}
	if len(art.SelfWeights) != art.InChannels {
		return nil, fmt.Errorf("model artifact: %d self weights for %d channels", len(art.SelfWeights), art.InChannels)
	}
	if len(art.NeighborWeights) != art.InChannels {
		return nil, fmt.Errorf("model artifact: %d neighbor weights for %d channels", len(art.NeighborWeights), art.InChannels)
	}
	if len(art.ScaleMean) != 0 && len(art.ScaleMean) != art.InChannels {
		return nil, fmt.Errorf("model artifact: %d scaler means for %d channels", len(art.ScaleMean), art.InChannels)
	}
	if len(art.ScaleStd) != len(art.ScaleMean) {
		return nil, fmt.Errorf("model artifact: scaler mean/std length mismatch")
	}
	return &LinearScorer{art: art}, nil
}

// InChannels returns the feature dimension the artifact expects.
func (s *LinearScorer) InChannels() int { return s.art.InChannels }

// TextDim returns the trailing text-embedding dimension.
func (s *LinearScorer) TextDim() int { return s.art.TextDim }

// Score implements Scorer.
func (s *LinearScorer) Score(nodes [][]float64, edges [][2]int, query int) (float64, error) {
	if query < 0 || query >= len(nodes) {
		return 0, fmt.Errorf("score: query node %d out of range [0, %d)", query, len(nodes))
	}

	if len(nodes[query]) != s.art.InChannels {
		return 0, fmt.Errorf("score: node has %d features, model expects %d", len(nodes[query]), s.art.InChannels)
	}
	x := s.scale(nodes[query])

	// Mean-aggregate the query's in-neighbors.
	agg := make([]float64, s.art.InChannels)
	var degree int
	for _, e := range edges {
		if e[1] != query {
			continue
		}
		if e[0] < 0 || e[0] >= len(nodes) {
			return 0, fmt.Errorf("score: edge references node %d out of range", e[0])
		}
		if len(nodes[e[0]]) != s.art.InChannels {
			return 0, fmt.Errorf("score: neighbor has %d features, model expects %d", len(nodes[e[0]]), s.art.InChannels)
		}
		n := s.scale(nodes[e[0]])
		for i := range agg {
			agg[i] += n[i]
		}
		degree++
	}
	if degree > 0 {
		for i := range agg {
			agg[i] /= float64(degree)
		}
	}

	out := s.art.Bias
	for i := range x {
		out += s.art.SelfWeights[i] * x[i]
		out += s.art.NeighborWeights[i] * agg[i]
	}
	return out, nil
}

func (s *LinearScorer) scale(x []float64) []float64 {
	if len(s.art.ScaleMean) == 0 {
		return x
	}
	out := make([]float64, len(x))
	for i := range x {
		std := s.art.ScaleStd[i]
		if std == 0 {
			std = 1
		}
		out[i] = (x[i] - s.art.ScaleMean[i]) / std
	}
	return out
}
