package gemini_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/gemini"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	answer string
	err    error

	gotModel  string
	gotPrompt string
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.gotPrompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.answer, genai.RoleModel)},
		},
	}, nil
}

var candidates = []string{"Get Weather", "Get News"}

func TestResolver_Classify(t *testing.T) {
	fake := &fakeModels{answer: "Get Weather\n"}
	r := gemini.NewWithGenerator(fake, gemini.WithModel("gemini-test"))

	got, err := r.Classify(context.Background(), "is it raining?", candidates)
	require.NoError(t, err)
	assert.Equal(t, "Get Weather\n", got)
	assert.Equal(t, "gemini-test", fake.gotModel)
	assert.Contains(t, fake.gotPrompt, `"is it raining?"`)
	assert.Contains(t, fake.gotPrompt, `["Get Weather", "Get News"]`)
}

func TestResolver_BlankAnswerIsNoMatch(t *testing.T) {
	r := gemini.NewWithGenerator(&fakeModels{answer: "  "})
	got, err := r.Classify(context.Background(), "hm", candidates)
	require.NoError(t, err)
	assert.Equal(t, domain.NoMatch, got)
}

func TestResolver_NoCandidates(t *testing.T) {
	fake := &fakeModels{answer: "Get Weather"}
	got, err := gemini.NewWithGenerator(fake).Classify(context.Background(), "hm", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NoMatch, got)
	assert.Empty(t, fake.gotModel, "model not called")
}

func TestResolver_Error(t *testing.T) {
	r := gemini.NewWithGenerator(&fakeModels{err: errors.New("quota")})
	_, err := r.Classify(context.Background(), "hm", candidates)
	assert.Error(t, err)
}

func TestResolver_ThroughAdapter(t *testing.T) {
	a := intent.NewAdapter(gemini.NewWithGenerator(&fakeModels{answer: "`\"Get News\"`"}))
	res := a.Resolve(context.Background(), "headlines", candidates)
	assert.Equal(t, "Get News", res.Intent)
	assert.Equal(t, domain.OutcomeMatched, res.Outcome)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := gemini.New(context.Background(), "")
	assert.ErrorIs(t, err, gemini.ErrMissingAPIKey)
}

func TestBuildPrompt(t *testing.T) {
	p := gemini.BuildPrompt("hello", []string{"A"})
	assert.Contains(t, p, "expert intent classifier")
	assert.Contains(t, p, `"NO_MATCH"`)
}
