package predict

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/churnpipe/internal/features"
)

// ErrNodeNotFound is returned when the requested node id is not in the graph.
var ErrNodeNotFound = fmt.Errorf("node not found")

// Service answers churn queries against a frozen feature table.
//
// Each feature row is one graph node; node ids are the global session ids
// rendered as strings. Base edges chain a device's sessions in session
// order, both directions. A query appends one synthetic node (column means
// with the text embedding substituted) plus one bidirectional edge to the
// named existing node, and scores the synthetic node.
type Service struct {
	scorer Scorer
	vec    Vectorizer

	ids   []string    // node index -> id
	index map[string]int
	nodes [][]float64 // base matrix, text-emb block zeroed
	edges [][2]int
	means []float64

	meanChurn float64
}

// Estimate is one answer from the service.
type Estimate struct {
	ChurnRate          float64 `json:"churn_rate"`
	ChurnVsMeanPercent float64 `json:"churn_vs_mean_percent"`
}

// NewService builds a service over a feature table. textDim is the width of
// the trailing text-embedding block; numeric feature width plus textDim must
// equal the scorer's input dimension.
func NewService(table *features.Table, scorer *LinearScorer) (*Service, error) {
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("predict service: empty feature table")
	}

	textDim := scorer.TextDim()
	numeric := len(features.NumericColumns(table.Prefixes))
	if numeric+textDim != scorer.InChannels() {
		return nil, fmt.Errorf("predict service: table yields %d features plus %d text dims, model expects %d",
			numeric, textDim, scorer.InChannels())
	}

	s := &Service{
		scorer: scorer,
		vec:    Vectorizer{Dim: textDim},
		index:  make(map[string]int, len(table.Rows)),
		means:  make([]float64, numeric+textDim),
	}

	var lost int
	for i := range table.Rows {
		r := &table.Rows[i]
		id := strconv.FormatInt(r.SessionID, 10)

		vec := make([]float64, numeric+textDim)
		for j, v := range r.Values(table.Prefixes) {
			vec[j] = float64(v)
			s.means[j] += float64(v)
		}
		// Text-emb block stays zero for existing nodes; only the synthetic
		// query node carries a real embedding.

		s.ids = append(s.ids, id)
		s.index[id] = i
		s.nodes = append(s.nodes, vec)

		if r.IsLost {
			lost++
		}
	}
	for j := range s.means {
		s.means[j] /= float64(len(table.Rows))
	}
	s.meanChurn = float64(lost) / float64(len(table.Rows))

	s.edges = deviceChainEdges(table)

	slog.Info("predict service ready",
		"nodes", len(s.nodes),
		"edges", len(s.edges),
		"in_channels", scorer.InChannels(),
		"mean_churn", s.meanChurn)
	return s, nil
}

// deviceChainEdges links consecutive sessions of the same device, both
// directions. Rows are already sorted by session id; session ids were
// assigned in (device, session_num) order, so per-device groups are
// contiguous and chronological.
func deviceChainEdges(table *features.Table) [][2]int {
	byDevice := make(map[int64][]int)
	var devices []int64
	for i := range table.Rows {
		d := table.Rows[i].DeviceID
		if _, ok := byDevice[d]; !ok {
			devices = append(devices, d)
		}
		byDevice[d] = append(byDevice[d], i)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	var edges [][2]int
	for _, d := range devices {
		idx := byDevice[d]
		for k := 0; k+1 < len(idx); k++ {
			edges = append(edges, [2]int{idx[k], idx[k+1]}, [2]int{idx[k+1], idx[k]})
		}
	}
	return edges
}

// Nodes returns the number of graph nodes.
func (s *Service) Nodes() int { return len(s.nodes) }

// MeanChurn returns the population mean churn rate.
func (s *Service) MeanChurn() float64 { return s.meanChurn }

// Predict scores a synthetic node attached to the named existing node.
// The synthetic node's features are the column means with the hashed text
// embedding of (screen, functional, action) substituted into the text block.
func (s *Service) Predict(nodeID, screen, functional, action string) (Estimate, error) {
	existing, ok := s.index[nodeID]
	if !ok {
		return Estimate{}, fmt.Errorf("predict: node %q: %w", nodeID, ErrNodeNotFound)
	}

	synthetic := make([]float64, len(s.means))
	copy(synthetic, s.means)
	emb := s.vec.Embed(screen, functional, action)
	copy(synthetic[len(synthetic)-len(emb):], emb)

	nodes := make([][]float64, len(s.nodes), len(s.nodes)+1)
	copy(nodes, s.nodes)
	nodes = append(nodes, synthetic)
	query := len(nodes) - 1

	edges := make([][2]int, len(s.edges), len(s.edges)+2)
	copy(edges, s.edges)
	edges = append(edges, [2]int{existing, query}, [2]int{query, existing})

	churn, err := s.scorer.Score(nodes, edges, query)
	if err != nil {
		return Estimate{}, fmt.Errorf("predict: %w", err)
	}

	est := Estimate{ChurnRate: churn}
	if s.meanChurn > 0 {
		est.ChurnVsMeanPercent = churn / s.meanChurn * 100
	}
	return est, nil
}
