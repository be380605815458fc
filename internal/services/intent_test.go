package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// scriptedClassifier returns canned results in order, or a transport error.
type scriptedClassifier struct {
	results []*ClassifyResult
	err     error
	calls   int
}

func (c *scriptedClassifier) Classify(_ context.Context, _ ClassifyRequest) (*ClassifyResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	idx := c.calls - 1
	if idx >= len(c.results) {
		idx = len(c.results) - 1
	}
	return c.results[idx], nil
}

func newTestEngine(c Classifier) *IntentEngine {
	return NewIntentEngine(c, 5*time.Second)
}

func TestResolveReturnsKnownAction(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `{"item_name":"steam momo","quantity":2}`},
	}}
	engine := newTestEngine(classifier)
	s := models.NewSession("whatsapp:+977980", "whatsapp")

	action := engine.Resolve(context.Background(), "2 steam momo", s)

	assert.Equal(t, ActionAddToCart, action.Name)
	assert.Equal(t, "steam momo", action.StringArg("item_name"))
	assert.Equal(t, 1, classifier.calls)
}

func TestResolveDiscardsHallucinatedAction(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: "launch_rockets", Arguments: `{}`, FreeText: "On it!"},
	}}
	engine := newTestEngine(classifier)
	s := models.NewSession("whatsapp:+977980", "whatsapp")

	action := engine.Resolve(context.Background(), "order for me", s)

	// An invented function name must never dispatch; it degrades to text.
	require.Equal(t, ActionRespondText, action.Name)
	assert.Equal(t, "On it!", action.StringArg("text"))
	assert.Equal(t, 1, classifier.calls)
}

func TestResolveRetriesMalformedArgumentsOnce(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `{"item_name": truncat`},
		{ActionName: ActionAddToCart, Arguments: `{"item_name":"coke"}`},
	}}
	engine := newTestEngine(classifier)
	s := models.NewSession("whatsapp:+977980", "whatsapp")

	action := engine.Resolve(context.Background(), "a coke please", s)

	assert.Equal(t, 2, classifier.calls)
	assert.Equal(t, ActionAddToCart, action.Name)
	assert.Equal(t, "coke", action.StringArg("item_name"))
}

func TestResolveMalformedTwiceFallsBackToText(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{ActionName: ActionAddToCart, Arguments: `not json`},
		{ActionName: ActionAddToCart, Arguments: `still not json`},
	}}
	engine := newTestEngine(classifier)
	s := models.NewSession("whatsapp:+977980", "whatsapp")

	action := engine.Resolve(context.Background(), "a coke please", s)

	// Exactly one repair attempt, then give up on the tool call.
	assert.Equal(t, 2, classifier.calls)
	require.Equal(t, ActionRespondText, action.Name)
	assert.Equal(t, genericApology, action.StringArg("text"))
}

func TestResolveFreeTextBecomesRespondText(t *testing.T) {
	classifier := &scriptedClassifier{results: []*ClassifyResult{
		{FreeText: "We close at 10pm!"},
	}}
	engine := newTestEngine(classifier)
	s := models.NewSession("whatsapp:+977980", "whatsapp")

	action := engine.Resolve(context.Background(), "when do you close?", s)

	require.Equal(t, ActionRespondText, action.Name)
	assert.Equal(t, "We close at 10pm!", action.StringArg("text"))
}

func TestResolveHeuristicsWhenClassifierDown(t *testing.T) {
	classifier := &scriptedClassifier{err: errors.New("connection refused")}
	engine := newTestEngine(classifier)

	cases := []struct {
		stage models.Stage
		text  string
		want  string
		arg   map[string]string
	}{
		{models.StageConfirmingOrder, "yes please", ActionProcessOrderResponse, map[string]string{"action": "confirmed"}},
		{models.StageConfirmingOrder, "no, cancel it", ActionProcessOrderResponse, map[string]string{"action": "cancelled"}},
		{models.StageConfirmingCancel, "ok sure", ActionProcessOrderResponse, map[string]string{"action": "confirmed"}},
		{models.StageSelectingPayment, "cash on delivery", ActionSelectPayment, map[string]string{"method": "cash"}},
		{models.StageInitial, "show me the menu", ActionShowMenu, nil},
		{models.StageCartOptions, "checkout", ActionCheckout, nil},
		{models.StageInitial, "what's in my cart", ActionViewCart, nil},
		{models.StageInitial, "asdfgh", ActionRespondText, nil},
	}

	for _, tc := range cases {
		s := models.NewSession("whatsapp:+977980", "whatsapp")
		s.Stage = tc.stage

		action := engine.Resolve(context.Background(), tc.text, s)

		assert.Equalf(t, tc.want, action.Name, "stage=%s text=%q", tc.stage, tc.text)
		for key, want := range tc.arg {
			assert.Equal(t, want, action.StringArg(key))
		}
	}
}
