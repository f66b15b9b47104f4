package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/vamanadb/internal/quantization"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/vamana"
)

// pqState holds the trained PQ codec and its vamana-facing provider once an
// OPTIMIZE command has run. Nil before that: only OPTIMIZE installs
// compression.
type pqState struct {
	codec    *quantization.Codec
	provider *vamana.PQProvider
}

// dispatch parses one command line and executes it, returning the response
// to write back and the verb name for logging/metrics. Most responses are a
// single line; SEARCH and MEMORY return several lines in one response.
// Unknown verbs, malformed arguments, and domain errors all come back as a
// single "ERROR <message>" line.
func (s *Server) dispatch(sess *session, line string) (resp string, verb string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERROR empty command", ""
	}
	verb = strings.ToUpper(fields[0])
	args := fields[1:]

	if verb == "AUTH" {
		return s.handleAuth(sess, args), verb
	}

	if s.validator != nil && !sess.authenticated {
		return "ERROR authentication required", verb
	}

	switch verb {
	case "CREATE":
		return s.handleCreate(args), verb
	case "WRITE":
		return s.handleWrite(args), verb
	case "SEARCH":
		return s.handleSearch(args), verb
	case "OPTIMIZE":
		return s.handleOptimize(args), verb
	case "MEMORY":
		return s.handleMemory(args), verb
	case "BULKLOAD":
		return s.handleBulkload(sess, args), verb
	default:
		return fmt.Sprintf("ERROR unknown command %q", fields[0]), verb
	}
}

func (s *Server) handleAuth(sess *session, args []string) string {
	if s.validator == nil {
		sess.authenticated = true
		return "OK"
	}
	if len(args) != 1 {
		return "ERROR usage: AUTH <token>"
	}
	if err := s.validator.validate(args[0]); err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	sess.authenticated = true
	return "OK"
}

// handleCreate builds a fresh index, replacing any existing one:
//
//	CREATE <dimension> <similarity> [m] [ef_construction] [alpha]
//
// similarity is one of euclidean|dot|cosine (spec section 6, CREATE).
func (s *Server) handleCreate(args []string) string {
	if len(args) < 2 {
		return "ERROR usage: CREATE <dimension> <similarity> [m] [ef_construction] [alpha]"
	}
	dim, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERROR invalid dimension"
	}
	sim, ok := parseSimilarityName(args[1])
	if !ok {
		return "ERROR similarity must be one of euclidean, dot, cosine"
	}

	cfg := vamana.DefaultConfig(dim, sim)
	if len(args) >= 3 {
		if v, err := strconv.Atoi(args[2]); err == nil {
			cfg.M = v
		}
	}
	if len(args) >= 4 {
		if v, err := strconv.Atoi(args[3]); err == nil {
			cfg.EfConstruction = v
		}
	}
	if len(args) >= 5 {
		if v, err := strconv.ParseFloat(args[4], 64); err == nil {
			cfg.Alpha = v
		}
	}

	idx, err := vamana.NewIndex(cfg)
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}

	s.mu.Lock()
	s.index = idx
	s.pq = nil
	s.mu.Unlock()

	s.logger.Info("index created", map[string]interface{}{"dimension": dim, "similarity": sim.String()})
	return "OK"
}

// handleWrite inserts a single vector:
//
//	WRITE <f32> <f32> ... <f32>
func (s *Server) handleWrite(args []string) string {
	idx, _, err := s.currentIndex()
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	vec, err := parseVector(args)
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	ord, err := idx.Insert(vec)
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	if s.metric != nil {
		s.metric.RecordInsert(1)
		s.metric.UpdateGraphSize(idx.Size())
	}
	return fmt.Sprintf("OK %d", ord)
}

// handleSearch runs a top-K query:
//
//	SEARCH <ef_search> <top_k> <f32> <f32> ... <f32>
//
// ef_search precedes top_k, matching the builder surface's
// search(query, top_k, ef_search) wire order (spec section 6). Response is
// "OK <n>" followed by n "<ordinal> <score>" lines, terminated by a blank
// line, all written atomically as one response payload (spec section 6,
// SEARCH's multi-line reply shape).
func (s *Server) handleSearch(args []string) string {
	idx, _, err := s.currentIndex()
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	if len(args) < 2 {
		return "ERROR usage: SEARCH <ef_search> <top_k> <vector...>"
	}
	efSearch, err := strconv.Atoi(args[0])
	if err != nil || efSearch <= 0 {
		return "ERROR ef_search must be a positive integer"
	}
	topK, err := strconv.Atoi(args[1])
	if err != nil || topK <= 0 {
		return "ERROR top_k must be a positive integer"
	}
	if efSearch < topK {
		return "ERROR ef_search must be >= top_k"
	}
	vec, err := parseVector(args[2:])
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}

	start := time.Now()
	results, err := idx.Search(vec, topK, efSearch)
	if err != nil {
		if s.metric != nil {
			s.metric.RecordCommandError("SEARCH", errKindOf(err))
		}
		return fmt.Sprintf("ERROR %v", err)
	}
	if s.metric != nil {
		s.metric.RecordSearch(time.Since(start), len(results))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "OK %d", len(results))
	for _, c := range results {
		fmt.Fprintf(&b, "\n%d %f", c.Ordinal, c.Score)
	}
	return b.String()
}

// handleOptimize trains a PQ codec from the vectors already in the index
// and installs it as the searcher's compressed provider:
//
//	OPTIMIZE <num_subvectors> [centered]
func (s *Server) handleOptimize(args []string) string {
	idx, _, err := s.currentIndex()
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	if len(args) < 1 {
		return "ERROR usage: OPTIMIZE <num_subvectors> [centered]"
	}
	m, err := strconv.Atoi(args[0])
	if err != nil || m <= 0 {
		return "ERROR num_subvectors must be a positive integer"
	}
	centered := len(args) >= 2 && strings.EqualFold(args[1], "true")

	vectors := idx.Vectors()
	if len(vectors) == 0 {
		return "ERROR index has no vectors to train against"
	}

	widths := quantization.EqualSubspaces(idx.Dimension(), m)
	codec, err := quantization.NewCodec(idx.Dimension(), widths, centered, quantization.DefaultConfig())
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}

	start := time.Now()
	if err := codec.Train(vectors); err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	duration := time.Since(start)

	provider := vamana.NewPQProvider(codec, idx.ConfigSimilarity())
	for _, v := range vectors {
		provider.Append(v)
	}

	idx.InstallCompressed(provider, idx.RerankFactor())

	s.mu.Lock()
	s.pq = &pqState{codec: codec, provider: provider}
	s.mu.Unlock()

	if s.metric != nil {
		s.metric.RecordPQTraining(duration, codec.CompressionRatio())
	}
	s.logger.Info("pq codec trained", map[string]interface{}{
		"subvectors": m, "centered": centered, "duration": duration.String(),
	})
	return fmt.Sprintf("OK %f", codec.CompressionRatio())
}

// handleMemory reports process, graph, and PQ statistics:
//
//	MEMORY
//
// Response is "OK" followed by "<key> <value>" lines and a blank line
// (SPEC_FULL section 4's supplemental MEMORY command).
func (s *Server) handleMemory(args []string) string {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b strings.Builder
	b.WriteString("OK")
	fmt.Fprintf(&b, "\nheap_alloc_bytes %d", memStats.HeapAlloc)
	fmt.Fprintf(&b, "\nheap_sys_bytes %d", memStats.HeapSys)
	fmt.Fprintf(&b, "\ngoroutines %d", runtime.NumGoroutine())

	if s.metric != nil {
		s.metric.UpdateMemoryUsage(memStats.HeapAlloc)
		s.metric.UpdateGoroutineCount(runtime.NumGoroutine())
	}

	s.mu.RLock()
	idx := s.index
	pq := s.pq
	s.mu.RUnlock()

	if idx != nil {
		fmt.Fprintf(&b, "\ngraph_size %d", idx.Size())
		fmt.Fprintf(&b, "\ngraph_dimension %d", idx.Dimension())
		if s.metric != nil {
			s.metric.UpdateGraphSize(idx.Size())
		}
	}
	if pq != nil {
		fmt.Fprintf(&b, "\npq_compression_ratio %f", pq.codec.CompressionRatio())
	}
	return b.String()
}

// handleBulkload streams vectors from a newline-delimited JSON float-array
// file on disk and inserts each one sequentially, subject to the
// connection's rate limit so one large load can't starve other
// connections (SPEC_FULL section 4's supplemental BULKLOAD command):
//
//	BULKLOAD <path>
func (s *Server) handleBulkload(sess *session, args []string) string {
	idx, _, err := s.currentIndex()
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	if len(args) != 1 {
		return "ERROR usage: BULKLOAD <path>"
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(line), &vec); err != nil {
			return fmt.Sprintf("ERROR malformed vector on line %d: %v", count+1, err)
		}
		if !s.limiter.waitFor(sess.id, s.cfg.RequestTimeout) {
			return fmt.Sprintf("ERROR rate limit wait exceeded after %d vectors", count)
		}
		if _, err := idx.Insert(vec); err != nil {
			return fmt.Sprintf("ERROR %v at line %d", err, count+1)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Sprintf("ERROR %v", err)
	}

	if s.metric != nil {
		s.metric.RecordInsert(count)
		s.metric.UpdateGraphSize(idx.Size())
	}
	return fmt.Sprintf("OK %d", count)
}

func (s *Server) currentIndex() (*vamana.Index, *pqState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, nil, fmt.Errorf("no index created, issue CREATE first")
	}
	return s.index, s.pq, nil
}

func parseSimilarityName(name string) (vamana.Similarity, bool) {
	switch strings.ToLower(name) {
	case "euclidean", "l2":
		return vamana.Euclidean, true
	case "dot", "dotproduct", "dot_product", "ip":
		return vamana.DotProduct, true
	case "cosine":
		return vamana.Cosine, true
	default:
		return 0, false
	}
}

func parseVector(fields []string) ([]float32, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q", f)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}

func errKindOf(err error) string {
	if ve, ok := err.(*vamana.Error); ok {
		return ve.Kind.String()
	}
	return "unknown"
}
