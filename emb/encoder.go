// Package emb runs a sentence-transformer model exported to ONNX.
//
// Texts are tokenized with a HuggingFace tokenizer.json, fed through the
// model with onnxruntime, mean pooled over the attention mask and L2
// normalized.
package emb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	defaultMaxSeqLen  = 128
	defaultHiddenSize = 384
)

var (
	envMu   sync.Mutex
	envRefs int
)

// Config describes the model files and runtime library.
type Config struct {
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	HiddenSize    int
}

// Encoder turns text into a dense vector. Call Init before Encode.
type Encoder struct {
	mu         sync.Mutex
	cfg        Config
	tk         *tokenizer.Tokenizer
	session    *ort.DynamicAdvancedSession
	inputs     []string
	output     string
	hiddenSize int
}

// Init loads the tokenizer, the onnxruntime library and the model session.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("emb: model path is required")
	}
	if cfg.TokenizerPath == "" {
		return errors.New("emb: tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = defaultMaxSeqLen
	}
	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("emb: load tokenizer: %w", err)
	}
	if err := acquireEnvironment(cfg.OrtDLL); err != nil {
		return err
	}
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		releaseEnvironment()
		return fmt.Errorf("emb: inspect model: %w", err)
	}
	if len(outputInfo) == 0 {
		releaseEnvironment()
		return errors.New("emb: model has no outputs")
	}
	inputs := make([]string, 0, len(inputInfo))
	for _, info := range inputInfo {
		switch info.Name {
		case "input_ids", "attention_mask", "token_type_ids":
			inputs = append(inputs, info.Name)
		}
	}
	if len(inputs) == 0 {
		releaseEnvironment()
		return errors.New("emb: model exposes no known text inputs")
	}
	hidden := cfg.HiddenSize
	if dims := outputInfo[0].Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		hidden = int(dims[len(dims)-1])
	}
	if hidden <= 0 {
		hidden = defaultHiddenSize
	}
	output := outputInfo[0].Name
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{output}, nil)
	if err != nil {
		releaseEnvironment()
		return fmt.Errorf("emb: create session: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.tk = tk
	e.session = session
	e.inputs = inputs
	e.output = output
	e.hiddenSize = hidden
	return nil
}

// Encode returns the pooled, normalized embedding of text.
func (e *Encoder) Encode(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("emb: encoder is not initialized")
	}
	en, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("emb: tokenize: %w", err)
	}
	ids, mask, types := truncate(en.Ids, en.AttentionMask, en.TypeIds, e.cfg.MaxSeqLen)
	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	feeds := map[string][]int64{
		"input_ids":      ids,
		"attention_mask": mask,
		"token_type_ids": types,
	}
	inputs := make([]ort.Value, 0, len(e.inputs))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range e.inputs {
		t, err := ort.NewTensor(shape, feeds[name])
		if err != nil {
			return nil, fmt.Errorf("emb: build %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(e.hiddenSize)))
	if err != nil {
		return nil, fmt.Errorf("emb: build output tensor: %w", err)
	}
	defer out.Destroy()

	if err := e.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("emb: run model: %w", err)
	}
	vec := MeanPool(out.GetData(), mask, e.hiddenSize)
	return L2Normalize(vec), nil
}

// Close releases the session and the shared onnxruntime environment.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	_ = e.session.Destroy()
	e.session = nil
	e.tk = nil
	releaseEnvironment()
}

func truncate(ids, mask, types []int, maxLen int) ([]int64, []int64, []int64) {
	n := len(ids)
	if n > maxLen {
		n = maxLen
	}
	outIDs := make([]int64, n)
	outMask := make([]int64, n)
	outTypes := make([]int64, n)
	for i := 0; i < n; i++ {
		outIDs[i] = int64(ids[i])
		outMask[i] = 1
		if i < len(mask) {
			outMask[i] = int64(mask[i])
		}
		if i < len(types) {
			outTypes[i] = int64(types[i])
		}
	}
	if len(ids) > maxLen && n > 0 {
		// keep the closing special token
		outIDs[n-1] = int64(ids[len(ids)-1])
	}
	return outIDs, outMask, outTypes
}

func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 && !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("emb: initialize onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		return
	}
	envRefs--
	if envRefs == 0 && ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}
