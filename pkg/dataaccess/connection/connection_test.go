package connection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_RequiresConnectionString(t *testing.T) {
	_, err := new(MongoDB).Connect(context.Background())
	require.ErrorIs(t, err, ErrNoConnectionString)

	_, err = new(Postgres).Connect(context.Background())
	require.ErrorIs(t, err, ErrNoConnectionString)
}
