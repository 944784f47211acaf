package dbtypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringArrayRoundTripsThroughLiteral(t *testing.T) {
	in := StringArray{"https://cdn/a.png", `say "hi", ok`}

	v, err := in.Value()
	require.NoError(t, err)

	var out StringArray
	require.NoError(t, out.Scan(v))
	require.Equal(t, in, out)
}

func TestStringArrayScanBytesAndNil(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`{plain,other}`)))
	require.Equal(t, StringArray{"plain", "other"}, a)

	require.NoError(t, a.Scan(nil))
	require.Empty(t, a)

	require.Error(t, a.Scan(42))
}

func TestStringArrayNilValueIsEmptyLiteral(t *testing.T) {
	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	require.Equal(t, "{}", v)

	raw, err := json.Marshal(struct {
		Images StringArray `json:"images"`
	}{})
	require.NoError(t, err)
	require.JSONEq(t, `{"images":[]}`, string(raw))
}
