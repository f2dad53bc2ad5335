package workspace

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/codeper/playground/internal/store"
	"github.com/codeper/playground/internal/testutil"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Pen", "My Pen"},
		{"   padded  ", "padded"},
		{"", DefaultTitle},
		{"   ", DefaultTitle},
		{"a <b> c", "a <b> c"},
		{"<script>alert(1)</script>", "<script>alert(1)</script>"},
		{"Tom &amp; Jerry", "Tom &amp; Jerry"},
		{strings.Repeat("a", 45), strings.Repeat("a", 30)},
		{strings.Repeat("ñ", 31), strings.Repeat("ñ", 30)},
		{strings.Repeat("a", 29) + " bbbbbbbb", strings.Repeat("a", 29) + " "},
		{"  " + strings.Repeat("c", 40), strings.Repeat("c", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeTitle(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxTitleLength)
		})
	}
}

func TestLoadProjectFallsBackPerField(t *testing.T) {
	s := store.NewMemoryStore(0)
	require.NoError(t, s.Set(store.KeyCSS, "p{}"))

	p, err := LoadProject(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, p.Title)
	assert.Equal(t, DefaultHTML, p.HTML)
	assert.Equal(t, "p{}", p.CSS)
	assert.Equal(t, DefaultJS, p.JS)

	broken := new(testutil.MockStore)
	broken.On("Get", mock.Anything).Return("", false, errors.New("unreadable"))
	p, err = LoadProject(broken)
	require.Error(t, err)
	assert.Equal(t, DefaultProject(), p)
	broken.AssertNumberOfCalls(t, "Get", 4)
}

func TestParseFragment(t *testing.T) {
	for _, name := range []string{"html", "CSS", "js"} {
		_, err := ParseFragment(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseFragment("ts")
	require.ErrorIs(t, err, ErrUnknownFragment)
}

func TestProjectAccessors(t *testing.T) {
	p := Project{HTML: "h", CSS: "c", JS: "j"}
	assert.Equal(t, "c", p.Get(FragmentCSS))
	p.set(FragmentJS, "k")
	assert.Equal(t, "k", p.JS)

	f := p.Fragments()
	assert.Equal(t, "h", f.HTML)
	assert.Equal(t, "k", f.JS)
}
