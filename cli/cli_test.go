package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_TopicArgs(t *testing.T) {
	cmd, args, err := rootCmd.Find([]string{"Coffee", "shop"})
	require.NoError(t, err)
	assert.Equal(t, rootCmd, cmd)
	assert.Equal(t, []string{"Coffee", "shop"}, args)
	assert.NoError(t, cmd.ValidateArgs(args))

	cmd, args, err = rootCmd.Find([]string{"wizard", "Coffee", "shop"})
	require.NoError(t, err)
	assert.Equal(t, wizardCmd, cmd)
	assert.NoError(t, cmd.ValidateArgs(args))

	cmd, _, err = rootCmd.Find([]string{"draft"})
	require.NoError(t, err)
	assert.Equal(t, draftCmd, cmd)
}
