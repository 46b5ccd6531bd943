package booru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"cat_ears", "blue"}, cleanTags([]string{"", " cat_ears ", "\t", "blue", "   "}))
	assert.Empty(t, cleanTags(nil))
}

func TestCheckTagsCeiling(t *testing.T) {
	d := Danbooru()
	assert.NoError(t, d.checkTags([]string{"a", "b"}, nil))
	assert.ErrorIs(t, d.checkTags([]string{"a", "b", "c"}, nil), ErrTooManyTags)

	unlimited := Konachan()
	assert.NoError(t, unlimited.checkTags(make([]string, 50), nil))
}

func TestCheckTagsAuthentication(t *testing.T) {
	d := SankakuComplex()
	tags := []string{"a", "b", "c", "d", "e"}
	assert.NoError(t, d.checkTags(tags[:4], nil))
	assert.ErrorIs(t, d.checkTags(tags, nil), ErrAuthenticationRequired)
	assert.NoError(t, d.checkTags(tags, &Credentials{Login: "user", Key: "token"}))
}

func TestJoinTags(t *testing.T) {
	assert.Equal(t, "cat_ears+rating%3Asafe", joinTags([]string{"Cat_Ears", "rating:safe"}))
	assert.Equal(t, "", joinTags(nil))
}
