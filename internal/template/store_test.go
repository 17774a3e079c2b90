package template

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metalab/pkg/platform/sentinel"
)

func TestFSStoreLoadByPayloadID(t *testing.T) {
	store := NewFSStore("testdata")

	tpl, err := store.Load(context.Background(), "ACME_WEB_V1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", tpl.Issuer)

	// File is named legacy_mobile.json; lookup still works because indexing
	// goes by the payload id, not the file name.
	tpl, err = store.Load(context.Background(), "ACME_IOS_V1")
	require.NoError(t, err)
	assert.False(t, tpl.StrictKeyset)
}

func TestFSStoreNotFound(t *testing.T) {
	store := NewFSStore("testdata")

	_, err := store.Load(context.Background(), "NOPE_V1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFSStoreUnavailableRoot(t *testing.T) {
	store := NewFSStore("testdata/does-not-exist")

	_, err := store.Load(context.Background(), "ACME_WEB_V1")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, err = store.ListIDsForIssuer(context.Background(), "Acme Bank")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestFSStoreSkipsBrokenPayloads(t *testing.T) {
	store := NewFSStore("testdata")

	ids, err := store.ListIDsForIssuer(context.Background(), "acme bank")
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME_IOS_V1", "ACME_WEB_V1"}, ids, "issuer match is case-insensitive, broken files skipped")
}

func TestFSStoreCacheInvalidate(t *testing.T) {
	store := NewFSStore("testdata", WithTTL(time.Hour))

	_, err := store.Load(context.Background(), "ACME_WEB_V1")
	require.NoError(t, err)

	store.Invalidate()

	_, err = store.Load(context.Background(), "ACME_WEB_V1")
	require.NoError(t, err)
}

func TestFSStoreContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFSStore("testdata")
	_, err := store.Load(ctx, "ACME_WEB_V1")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMemoryStore(t *testing.T) {
	web := &Template{ID: "ACME_WEB_V1", Issuer: "Acme Bank"}
	ios := &Template{ID: "ACME_IOS_V1", Issuer: "Acme Bank"}
	other := &Template{ID: "OTHER_V1", Issuer: "Other"}
	store := NewMemoryStore(web, ios, other)

	got, err := store.Load(context.Background(), "ACME_WEB_V1")
	require.NoError(t, err)
	assert.Same(t, web, got)

	_, err = store.Load(context.Background(), "MISSING")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	ids, err := store.ListIDsForIssuer(context.Background(), "acme bank")
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME_IOS_V1", "ACME_WEB_V1"}, ids)
}
