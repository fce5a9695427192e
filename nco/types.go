package nco

// LookupEntry is one row of the occupation reference table.
type LookupEntry struct {
	Code  string `json:"nco_code"`
	Label string `json:"occupation_title"`
}

// ScoredCandidate is a lookup entry ranked against a query.
type ScoredCandidate struct {
	Entry         LookupEntry `json:"entry"`
	Position      int         `json:"position"`
	SemanticScore float32     `json:"semantic_score"`
	LexicalScore  float32     `json:"lexical_score"`
	FinalScore    float32     `json:"final_score"`
}

// TitleRow is a survey record submitted to the batch matcher.
type TitleRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MatchResult holds the outcome of matching a single TitleRow.
// Code and Label are only set when Matched is true.
type MatchResult struct {
	InputRowID string  `json:"input_row_id"`
	Code       string  `json:"nco_code,omitempty"`
	Label      string  `json:"occupation_title,omitempty"`
	Score      float64 `json:"score"`
	Matched    bool    `json:"matched"`
}

// ScoreWeights mixes the semantic and lexical scores of the hybrid scorer.
type ScoreWeights struct {
	Semantic float32 `toml:"semantic" json:"semantic"`
	Lexical  float32 `toml:"lexical" json:"lexical"`
}

// DefaultWeights favours semantic similarity while letting near-exact lexical
// hits decide close calls.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{Semantic: 0.7, Lexical: 0.3}
}

// SearchConfig controls interactive search.
type SearchConfig struct {
	TopK    int          `toml:"top_k" json:"topK"`
	MaxTopK int          `toml:"max_top_k" json:"maxTopK"`
	Weights ScoreWeights `toml:"weights" json:"weights"`
}

// MatchConfig controls the batch matcher.
type MatchConfig struct {
	Threshold float64 `toml:"threshold" json:"threshold"`
	Workers   int     `toml:"workers" json:"workers"`
}

// DataConfig points at the reference and survey datasets.
type DataConfig struct {
	LookupPath  string `toml:"lookup_path" json:"lookupPath"`
	TitleColumn string `toml:"title_column" json:"titleColumn"`
	CodeColumn  string `toml:"code_column" json:"codeColumn"`
	SurveyCtl   string `toml:"survey_ctl" json:"surveyCtl"`
	WatchLookup bool   `toml:"watch_lookup" json:"watchLookup"`
}

// EmbedderConfig wraps the configuration for the embedding backend and cache.
type EmbedderConfig struct {
	Backend           string  `toml:"backend" json:"backend"`
	OrtDLL            string  `toml:"ort_dll" json:"ortDll"`
	ModelPath         string  `toml:"model_path" json:"modelPath"`
	TokenizerPath     string  `toml:"tokenizer_path" json:"tokenizerPath"`
	MaxSeqLen         int     `toml:"max_seq_len" json:"maxSeqLen"`
	HiddenSize        int     `toml:"hidden_size" json:"hiddenSize"`
	CacheDir          string  `toml:"cache_dir" json:"cacheDir"`
	ModelID           string  `toml:"model_id" json:"modelId"`
	Host              string  `toml:"host" json:"host"`
	Model             string  `toml:"model" json:"model"`
	Token             string  `toml:"token" json:"token"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requestsPerSecond"`
	BatchSize         int     `toml:"batch_size" json:"batchSize"`
	Workers           int     `toml:"workers" json:"workers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// Config aggregates runtime settings persisted to surveyx.toml.
type Config struct {
	Search   SearchConfig   `toml:"search" json:"search"`
	Match    MatchConfig    `toml:"match" json:"match"`
	Data     DataConfig     `toml:"data" json:"data"`
	Embedder EmbedderConfig `toml:"embedder" json:"embedder"`
	Server   ServerConfig   `toml:"server" json:"server"`
}

const (
	// BackendORT runs the embedding model locally with onnxruntime.
	BackendORT = "ort"
	// BackendOpenAI calls an OpenAI-compatible embeddings endpoint.
	BackendOpenAI = "openai"

	// DefaultThreshold is the minimum lexical score (0-100) the batch matcher accepts.
	DefaultThreshold = 80.0
	// CodeColumn is the column added to enriched survey datasets.
	CodeColumn = "nco_code"
)

// Clone returns a copy of the configuration. Config holds no reference types.
func (c Config) Clone() Config {
	return c
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Search.TopK <= 0 {
		c.Search.TopK = 3
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 10
	}
	if c.Search.TopK > c.Search.MaxTopK {
		c.Search.TopK = c.Search.MaxTopK
	}
	if c.Search.Weights == (ScoreWeights{}) {
		c.Search.Weights = DefaultWeights()
	}
	if c.Match.Threshold <= 0 {
		c.Match.Threshold = DefaultThreshold
	}
	if c.Data.LookupPath == "" {
		c.Data.LookupPath = "data/MOCK_DATA_with_NCO.csv"
	}
	if c.Data.SurveyCtl == "" {
		c.Data.SurveyCtl = "data/survey_data.ctl"
	}
	if c.Embedder.Backend == "" {
		c.Embedder.Backend = BackendORT
	}
	if c.Embedder.MaxSeqLen == 0 {
		c.Embedder.MaxSeqLen = 128
	}
	if c.Embedder.BatchSize <= 0 {
		c.Embedder.BatchSize = 32
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate reports settings that ApplyDefaults cannot repair.
func (c Config) Validate() error {
	w := c.Search.Weights
	if w.Semantic < 0 || w.Lexical < 0 || w.Semantic > 1 || w.Lexical > 1 {
		return &MalformedConfigError{Directive: "search.weights", Reason: "weights must be within [0,1]"}
	}
	if sum := w.Semantic + w.Lexical; sum < 0.999 || sum > 1.001 {
		return &MalformedConfigError{Directive: "search.weights", Reason: "weights must sum to 1"}
	}
	if c.Match.Threshold > 100 {
		return &MalformedConfigError{Directive: "match.threshold", Reason: "threshold is on a 0-100 scale"}
	}
	switch c.Embedder.Backend {
	case BackendORT, BackendOpenAI:
	default:
		return &MalformedConfigError{Directive: "embedder.backend", Reason: "unknown backend " + c.Embedder.Backend}
	}
	return nil
}
