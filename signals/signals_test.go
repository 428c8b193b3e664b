package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftroch1/0dte-sub000/models"
)

func TestSessionLifecycle(t *testing.T) {
	s := &Session{}
	s.StartDay("2025-08-21")
	assert.Equal(t, "2025-08-21", s.Date)
	assert.Zero(t, s.TradesToday)

	at := time.Date(2025, 8, 21, 15, 0, 0, 0, time.UTC)
	s.RecordTrade(at)
	s.RecordTrade(at.Add(time.Hour))
	assert.Equal(t, 2, s.TradesToday)
	assert.Equal(t, at.Add(time.Hour), s.LastTrade)

	s.StartDay("2025-08-22")
	assert.Zero(t, s.TradesToday)
	assert.Equal(t, "2025-08-22", s.Date)
}

func TestScriptedReplaysPlanInOrder(t *testing.T) {
	src := &Scripted{Plan: map[int]models.Signal{
		0: {Action: models.BuyCall, Confidence: 80},
		2: {Action: models.BuyPut, Confidence: 60},
	}}

	sig, err := src.Next(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.BuyCall, sig.Action)

	sig, err = src.Next(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = src.Next(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.BuyPut, sig.Action)

	sig, err = src.Next(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestFuncAdapter(t *testing.T) {
	want := errors.New("feed down")
	src := Func(func(context.Context, Request) (*models.Signal, error) {
		return nil, want
	})
	_, err := src.Next(context.Background(), Request{})
	assert.ErrorIs(t, err, want)
}
