package embedding

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxTokens   = 256
	defaultMaxWordLen  = 100
	defaultPiecePrefix = "##"
)

// Tokenizer produces BERT-style model inputs: token ids, attention mask and
// token type ids, each padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordPieceTokenizer is the BERT tokenizer: basic cleanup and punctuation
// splitting, then greedy longest-match-first word pieces from the model's
// vocabulary. Ids are the ones the ONNX export was trained with.
type WordPieceTokenizer struct {
	vocab      map[string]int64
	prefix     string
	maxWordLen int
	lowercase  bool

	unk, cls, sep, pad int64
}

// NewWordPieceTokenizer builds a tokenizer over vocab. The vocabulary must
// hold [UNK], [CLS], [SEP] and [PAD].
func NewWordPieceTokenizer(vocab map[string]int64, lowercase bool) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{
		vocab:      vocab,
		prefix:     defaultPiecePrefix,
		maxWordLen: defaultMaxWordLen,
		lowercase:  lowercase,
	}
	for _, sp := range []struct {
		token string
		id    *int64
	}{{"[UNK]", &t.unk}, {"[CLS]", &t.cls}, {"[SEP]", &t.sep}, {"[PAD]", &t.pad}} {
		id, ok := vocab[sp.token]
		if !ok {
			return nil, fmt.Errorf("wordpiece vocabulary has no %s token", sp.token)
		}
		*sp.id = id
	}
	return t, nil
}

// LoadTokenizer reads a vocab.txt (one token per line, id = line number) or
// a Hugging Face tokenizer.json with a WordPiece model. lowercase applies to
// vocab.txt; tokenizer.json carries its own normalizer setting.
func LoadTokenizer(path string, lowercase bool) (*WordPieceTokenizer, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadTokenizerJSON(path, lowercase)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r")
		if _, dup := vocab[token]; !dup {
			vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	t, err := NewWordPieceTokenizer(vocab, lowercase)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

type tokenizerFile struct {
	Model struct {
		Type       string           `json:"type"`
		UnkToken   string           `json:"unk_token"`
		Prefix     *string          `json:"continuing_subword_prefix"`
		MaxWordLen int              `json:"max_input_chars_per_word"`
		Vocab      map[string]int64 `json:"vocab"`
	} `json:"model"`
	Normalizer *struct {
		Lowercase *bool `json:"lowercase"`
	} `json:"normalizer"`
}

func loadTokenizerJSON(path string, lowercase bool) (*WordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open tokenizer: %w", err)
	}
	var tf tokenizerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tokenizer %s: %w", path, err)
	}
	if tf.Model.Type != "WordPiece" {
		return nil, fmt.Errorf("tokenizer %s: model type %q is not WordPiece", path, tf.Model.Type)
	}
	if tf.Normalizer != nil && tf.Normalizer.Lowercase != nil {
		lowercase = *tf.Normalizer.Lowercase
	}
	vocab := tf.Model.Vocab
	if tf.Model.UnkToken != "" && tf.Model.UnkToken != "[UNK]" {
		if id, ok := vocab[tf.Model.UnkToken]; ok {
			vocab["[UNK]"] = id
		}
	}
	t, err := NewWordPieceTokenizer(vocab, lowercase)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if tf.Model.Prefix != nil {
		t.prefix = *tf.Model.Prefix
	}
	if tf.Model.MaxWordLen > 0 {
		t.maxWordLen = tf.Model.MaxWordLen
	}
	return t, nil
}

// Tokenize implements Tokenizer. The sequence is [CLS] pieces [SEP], with
// pieces past the window dropped and the rest padded with [PAD]. maxTokens
// below 2 selects 256.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = t.pad
	}

	n := 0
	put := func(id int64) {
		inputIDs[n] = id
		attentionMask[n] = 1
		n++
	}
	put(t.cls)
fill:
	for _, word := range basicTokens(text, t.lowercase) {
		for _, id := range t.pieces(word) {
			if n == maxTokens-1 {
				break fill
			}
			put(id)
		}
	}
	put(t.sep)
	return inputIDs, attentionMask, tokenTypeIDs
}

// pieces splits one word greedily, longest vocabulary match first. A word
// with any unmatched remainder becomes a single [UNK].
func (t *WordPieceTokenizer) pieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > t.maxWordLen {
		return []int64{t.unk}
	}
	var out []int64
	for start := 0; start < len(runes); {
		end, id := len(runes), int64(-1)
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = t.prefix + sub
			}
			if v, ok := t.vocab[sub]; ok {
				id = v
				break
			}
		}
		if id < 0 {
			return []int64{t.unk}
		}
		out = append(out, id)
		start = end
	}
	return out
}

// basicTokens drops control characters, optionally lower-cases and strips
// accents, and splits on whitespace, punctuation and CJK ideographs.
func basicTokens(text string, lowercase bool) []string {
	if lowercase {
		text = stripAccents(strings.ToLower(text))
	}
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar:
		case unicode.IsSpace(r):
			flush()
		case unicode.IsControl(r):
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isPunct treats every non-alphanumeric ASCII symbol as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// SplitWords splits text on every rune that is not a letter or digit.
func SplitWords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil
	}
	return words
}

// tokenizerFor resolves the vocabulary for an ONNX model: vocabPath when
// set, else vocab.txt or tokenizer.json next to the model.
func tokenizerFor(modelPath, vocabPath string, lowercase bool) (*WordPieceTokenizer, error) {
	if vocabPath != "" {
		return LoadTokenizer(vocabPath, lowercase)
	}
	dir := filepath.Dir(modelPath)
	for _, name := range []string{"vocab.txt", "tokenizer.json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadTokenizer(p, lowercase)
		}
	}
	return nil, fmt.Errorf("onnx embedder: no vocab.txt or tokenizer.json next to %s; set embedding.vocab_path", modelPath)
}
