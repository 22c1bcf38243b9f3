package cmd

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantTokensFlagValidation(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"--count", "2"}, "--user is required"},
		{[]string{"--user", "3", "--count", "0"}, "--count must be positive"},
		{[]string{"extra", "--user", "3"}, "unknown command"},
	}
	for _, tc := range cases {
		cmd := newGrantTokensCmd()
		cmd.SetArgs(tc.args)
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		err := cmd.Execute()
		require.Error(t, err, "%v", tc.args)
		assert.Contains(t, err.Error(), tc.want)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []interface{ Name() string }{newServeCmd(), newMigrateCmd(), newGrantTokensCmd()} {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"serve": true, "migrate": true, "grant-tokens": true}, names)
}
