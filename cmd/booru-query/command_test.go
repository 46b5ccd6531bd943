package main

import (
	"context"
	"errors"
	"testing"

	"github.com/dictor/booru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, d booru.Descriptor) *booru.Client {
	t.Helper()
	c, err := booru.New(d, booru.WithLogger(Logger))
	require.NoError(t, err)
	return c
}

func TestRunAll(t *testing.T) {
	cs := []*booru.Client{
		newClient(t, booru.Konachan()),
		newClient(t, booru.Safebooru()),
		newClient(t, booru.Yandere()),
	}
	down := errors.New("down")
	fn := func(_ context.Context, c *booru.Client) ([]interface{}, error) {
		if c.Descriptor().Name == "Safebooru" {
			return nil, down
		}
		return []interface{}{c.Descriptor().Name}, nil
	}

	results, err := runAll(context.Background(), cs, "test", fn)
	assert.ErrorIs(t, err, down)
	assert.Equal(t, [][]interface{}{{"Konachan"}, nil, {"Yandere"}}, results)

	results, err = runAll(context.Background(), cs[:1], "test", fn)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"Konachan"}}, results)
}
