package passphrase

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func scripted(s *Source, answers ...string) *Source {
	s.prompt = io.Discard
	s.isTerminal = func() bool { return true }
	s.readSecret = func() (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("OTC_TEST_PASS", "from-env")
	value, err := NewSource("OTC_TEST_PASS", true).Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("OTC_TEST_PASS", "   ")
	_, err := NewSource("OTC_TEST_PASS", false).Get()
	require.Error(t, err)
}

func TestSourcePromptsAndCaches(t *testing.T) {
	src := scripted(NewSource("", false), "typed")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "typed", value)

	value, err = src.Get()
	require.NoError(t, err)
	require.Equal(t, "typed", value)
}

func TestSourceConfirmMismatch(t *testing.T) {
	_, err := scripted(NewSource("", true), "one", "two").Get()
	require.ErrorIs(t, err, ErrMismatch)
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("OTC_TEST_UNSET_PASS", false)
	src.isTerminal = func() bool { return false }
	_, err := src.Get()
	require.ErrorContains(t, err, "OTC_TEST_UNSET_PASS")
}
