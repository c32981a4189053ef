package problem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jojo-liu/acme4j/acme/jsonview"
	"github.com/jojo-liu/acme4j/acme/problem"
)

// Grounded on ChallengeTest.java's testUnmarshal problem fixture.
func TestParse(t *testing.T) {
	data, err := jsonview.Parse([]byte(`{
		"type": "urn:ietf:params:acme:error:incorrectResponse",
		"detail": "bad token",
		"instance": "http://example.com/documents/faq.html",
		"status": 400,
		"subproblems": [
			{"type": "urn:ietf:params:acme:error:malformed", "detail": "sub-issue"}
		]
	}`))
	require.NoError(t, err)

	p := problem.Parse(data)
	assert.Equal(t, "urn:ietf:params:acme:error:incorrectResponse", p.TypeURI())
	assert.Equal(t, "bad token", p.Detail)
	require.NotNil(t, p.Instance)
	assert.Equal(t, "http://example.com/documents/faq.html", p.Instance.String())
	assert.Equal(t, 400, p.Status)
	require.Len(t, p.Subproblems, 1)
	assert.Equal(t, "sub-issue", p.Subproblems[0].Detail)

	assert.True(t, p.Is("incorrectResponse"))
	assert.False(t, p.Is("badNonce"))
}

func TestParse_NoType(t *testing.T) {
	data, err := jsonview.Parse([]byte(`{"detail": "something went wrong"}`))
	require.NoError(t, err)

	p := problem.Parse(data)
	assert.Equal(t, "", p.TypeURI())
	assert.Nil(t, p.Type)
	assert.Contains(t, p.String(), "something went wrong")
}

func TestProblem_String_Empty(t *testing.T) {
	assert.Equal(t, "acme problem: (no detail)", problem.Problem{}.String())
}
