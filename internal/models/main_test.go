package models

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func readBody(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}
