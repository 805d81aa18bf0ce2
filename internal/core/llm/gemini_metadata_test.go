package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/paperstack-io/paperstack/internal/core"
)

func TestParseReply_PlainJSON(t *testing.T) {
	md, err := parseReply(`{
		"title": "Graph Learning at Scale",
		"authors": ["A. Lee", "B. Chen"],
		"keywords": ["graphs", "learning", "scale", "sampling", "systems"],
		"date": "2020-05",
		"journal": "Nature",
		"abstract": "We study graphs."
	}`)
	require.NoError(t, err)
	require.Equal(t, "Graph Learning at Scale", md.Title)
	require.Equal(t, []string{"A. Lee", "B. Chen"}, md.Authors)
	require.Len(t, md.Keywords, 5)
	require.Equal(t, "2020-05", md.Date)
	require.Equal(t, "Nature", md.Journal)
}

func TestParseReply_FencedJSON(t *testing.T) {
	md, err := parseReply("```json\n{\"title\":\"T\",\"authors\":[\"A\"],\"keywords\":[\"k1\",\"k2\",\"k3\",\"k4\",\"k5\"],\"date\":\"2021\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "T", md.Title)
	require.Equal(t, "2021", md.Date)
}

func TestParseReply_MissingRequiredFieldIsTransient(t *testing.T) {
	cases := map[string]string{
		"no title":    `{"authors":["A"],"keywords":["k"],"date":"2021"}`,
		"no authors":  `{"title":"T","keywords":["k"],"date":"2021"}`,
		"no keywords": `{"title":"T","authors":["A"],"date":"2021"}`,
		"no date":     `{"title":"T","authors":["A"],"keywords":["k"]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseReply(raw)
			require.ErrorIs(t, err, core.ErrTransient)
		})
	}
}

func TestParseReply_UndecodableIsTransient(t *testing.T) {
	_, err := parseReply("Sorry, I cannot help with that.")
	require.ErrorIs(t, err, core.ErrTransient)
}

func TestIsOverloaded(t *testing.T) {
	require.True(t, isOverloaded(&googleapi.Error{Code: 503, Message: "service unavailable"}))
	require.True(t, isOverloaded(&googleapi.Error{Code: 429, Message: "rate limited"}))
	require.True(t, isOverloaded(fmt.Errorf("rpc error: the model is overloaded")))
	require.True(t, isOverloaded(errors.New("UNAVAILABLE: try again later")))
	require.False(t, isOverloaded(&googleapi.Error{Code: 400, Message: "bad request"}))
	require.False(t, isOverloaded(errors.New("invalid api key")))
}
