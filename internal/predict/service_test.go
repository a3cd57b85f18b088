package predict

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/churnpipe/internal/features"
)

// flatScorer builds a scorer with uniform weights and no scaler so the
// expected scores are easy to compute by hand.
func flatScorer(t *testing.T, channels, textDim int, selfW, neighW, bias float64) *LinearScorer {
	t.Helper()

	art := Artifact{InChannels: channels, TextDim: textDim, Bias: bias}
	for i := 0; i < channels; i++ {
		art.SelfWeights = append(art.SelfWeights, selfW)
		art.NeighborWeights = append(art.NeighborWeights, neighW)
	}
	data, err := json.Marshal(art)
	require.NoError(t, err)

	scorer, err := NewScorer(data)
	require.NoError(t, err)
	return scorer
}

func smallTable() *features.Table {
	mk := func(session, device int64, lost bool, dur int64) features.Row {
		return features.Row{
			SessionID:  session,
			DeviceID:   device,
			SessionNum: 1,
			FirstEvent: time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC),
			IsLost:     lost,
			SessDurSec: dur,
			Blocks: map[string]features.BlockMetrics{
				"request": {Count: 1, DurSec: dur, ClickCount: 1},
			},
		}
	}
	return &features.Table{
		Prefixes: []string{"request"},
		Rows: []features.Row{
			mk(1, 10, true, 10),
			mk(2, 10, false, 20),
			mk(3, 11, false, 30),
		},
	}
}

func numericWidth(table *features.Table) int {
	return len(features.NumericColumns(table.Prefixes))
}

func TestVectorizer_Deterministic(t *testing.T) {
	v := Vectorizer{Dim: 16}

	a := v.Embed("Новая заявка", "Выбор квартиры", "Тап на квартиру")
	b := v.Embed("Новая заявка", "Выбор квартиры", "Тап на квартиру")
	assert.Equal(t, a, b)

	// Unit length.
	var ss float64
	for _, x := range a {
		ss += x * x
	}
	assert.InDelta(t, 1.0, ss, 1e-9)
}

func TestVectorizer_UnicodeCompositionInvariant(t *testing.T) {
	v := Vectorizer{Dim: 16}

	composed := v.Embed("café", "", "")
	decomposed := v.Embed("café", "", "")
	assert.Equal(t, composed, decomposed)
}

func TestVectorizer_ZeroDim(t *testing.T) {
	v := Vectorizer{Dim: 0}
	assert.Empty(t, v.Embed("Экран", "Функционал", "Тап"))
}

func TestNewScorer_RejectsBadArtifacts(t *testing.T) {
	cases := map[string]string{
		"zero channels":     `{"in_channels": 0}`,
		"short self":        `{"in_channels": 2, "self_weights": [1], "neighbor_weights": [1, 1]}`,
		"short neighbor":    `{"in_channels": 2, "self_weights": [1, 1], "neighbor_weights": [1]}`,
		"short scaler mean": `{"in_channels": 2, "self_weights": [1, 1], "neighbor_weights": [1, 1], "scale_mean": [0]}`,
		"std mismatch":      `{"in_channels": 2, "self_weights": [1, 1], "neighbor_weights": [1, 1], "scale_mean": [0, 0], "scale_std": [1]}`,
		"not json":          `weights.bin`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewScorer([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLinearScorer_NeighborMean(t *testing.T) {
	scorer := flatScorer(t, 1, 0, 1.0, 1.0, 0)

	nodes := [][]float64{{2}, {4}, {10}}
	edges := [][2]int{{0, 2}, {1, 2}}

	// self(10) + mean(in-neighbors 2, 4) = 13.
	got, err := scorer.Score(nodes, edges, 2)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, got, 1e-9)

	// No in-edges: only the self term remains.
	got, err = scorer.Score(nodes, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestLinearScorer_AppliesScaler(t *testing.T) {
	art := Artifact{
		InChannels:      1,
		SelfWeights:     []float64{1},
		NeighborWeights: []float64{0},
		ScaleMean:       []float64{10},
		ScaleStd:        []float64{2},
	}
	data, err := json.Marshal(art)
	require.NoError(t, err)
	scorer, err := NewScorer(data)
	require.NoError(t, err)

	got, err := scorer.Score([][]float64{{14}}, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-9) // (14-10)/2

	// Zero std falls back to unit scale instead of dividing by zero.
	art.ScaleStd = []float64{0}
	data, err = json.Marshal(art)
	require.NoError(t, err)
	scorer, err = NewScorer(data)
	require.NoError(t, err)

	got, err = scorer.Score([][]float64{{14}}, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-9)
}

func TestLinearScorer_RejectsMalformedGraph(t *testing.T) {
	scorer := flatScorer(t, 2, 0, 1, 1, 0)

	_, err := scorer.Score([][]float64{{1, 2}}, nil, 5)
	require.Error(t, err)

	_, err = scorer.Score([][]float64{{1}}, nil, 0)
	require.Error(t, err)

	_, err = scorer.Score([][]float64{{1, 2}, {1}}, [][2]int{{1, 0}}, 0)
	require.Error(t, err)
}

func TestNewService_DimensionMismatch(t *testing.T) {
	table := smallTable()
	scorer := flatScorer(t, 3, 0, 0, 0, 0)

	_, err := NewService(table, scorer)
	require.Error(t, err)
}

func TestNewService_EmptyTable(t *testing.T) {
	scorer := flatScorer(t, 1, 0, 0, 0, 0)
	_, err := NewService(&features.Table{Prefixes: []string{"request"}}, scorer)
	require.Error(t, err)
}

func TestService_PredictRatioAgainstMean(t *testing.T) {
	table := smallTable()
	scorer := flatScorer(t, numericWidth(table), 0, 0, 0, 0.5)

	svc, err := NewService(table, scorer)
	require.NoError(t, err)

	assert.Equal(t, 3, svc.Nodes())
	assert.InDelta(t, 1.0/3.0, svc.MeanChurn(), 1e-9)

	// Zero weights leave only the bias, so the estimate is exactly 0.5
	// against a population mean of 1/3.
	est, err := svc.Predict("1", "Профиль", "Просмотр", "Тап")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, est.ChurnRate, 1e-9)
	assert.InDelta(t, 150.0, est.ChurnVsMeanPercent, 1e-9)
}

func TestService_PredictWithTextEmbedding(t *testing.T) {
	table := smallTable()
	textDim := 4
	scorer := flatScorer(t, numericWidth(table)+textDim, textDim, 0, 0, 0)

	svc, err := NewService(table, scorer)
	require.NoError(t, err)

	est, err := svc.Predict("2", "Профиль", "Просмотр", "Тап")
	require.NoError(t, err)
	assert.Zero(t, est.ChurnRate)
	assert.Zero(t, est.ChurnVsMeanPercent)
}

func TestService_UnknownNode(t *testing.T) {
	table := smallTable()
	scorer := flatScorer(t, numericWidth(table), 0, 0, 0, 0)

	svc, err := NewService(table, scorer)
	require.NoError(t, err)

	_, err = svc.Predict("999", "Экран", "Функционал", "Тап")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestDeviceChainEdges(t *testing.T) {
	table := smallTable()
	edges := deviceChainEdges(table)

	// Device 10 owns rows 0 and 1: one bidirectional link. Device 11 has a
	// single session and no edges.
	require.Len(t, edges, 2)
	assert.Equal(t, [2]int{0, 1}, edges[0])
	assert.Equal(t, [2]int{1, 0}, edges[1])
}
