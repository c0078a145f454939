package quietroom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietroom/quietroom"
)

func TestParsePostStatus(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"pending", "approved", "rejected"} {
		status, err := quietroom.ParsePostStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, quietroom.PostStatus(valid), status)
		assert.True(t, status.IsValid())
	}

	for _, invalid := range []string{"", "PENDING", "deleted", "draft"} {
		_, err := quietroom.ParsePostStatus(invalid)
		assert.Error(t, err, "status %q", invalid)
	}
}
