package cardid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMarkFragment(t *testing.T) {
	assert.Equal(t, "{{foo}[bar]} bar {{foo}[bar]} bar", MarkFragment("foo bar foo bar", "foo", "bar"))
	assert.Equal(t, "foo bar", MarkFragment("foo bar", "", "bar"), "empty fragment is a no-op")
	assert.Equal(t, "foo bar", MarkFragment("foo bar", "baz", "bar"))
}

func TestAnnotate(t *testing.T) {
	text := "a 123 b 456 c"
	got := Annotate(text, []Mark{
		{Start: 8, End: 11, Label: "NOTICE"},
		{Start: 2, End: 5, Label: "ALERT"},
	})
	assert.Equal(t, "a {{123}[ALERT]} b {{456}[NOTICE]} c", got)
}

func TestAnnotate_OnlyGivenSpans(t *testing.T) {
	// Same text elsewhere is not touched, unlike MarkFragment.
	text := "1234567 and 91234567"
	got := Annotate(text, []Mark{{Start: 0, End: 7, Label: "ALERT"}})
	assert.Equal(t, "{{1234567}[ALERT]} and 91234567", got)
}

func TestAnnotate_DropsOverlapping(t *testing.T) {
	got := Annotate("abcdef", []Mark{
		{Start: 0, End: 4, Label: "X"},
		{Start: 2, End: 6, Label: "Y"},
		{Start: 5, End: 9, Label: "Z"},
	})
	assert.Equal(t, "{{abcd}[X]}ef", got)
}

func TestAnnotate_NoMarks(t *testing.T) {
	assert.Equal(t, "text", Annotate("text", nil))
}

func TestUnmarkedSegments(t *testing.T) {
	text := "x {{4111 1111}[ALERT]} y {{5}[N]}"
	got := unmarkedSegments(text)
	want := []segment{
		{offset: 0, text: "x "},
		{offset: 22, text: " y "},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(segment{})); diff != "" {
		t.Errorf("unmarkedSegments mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarkedSegments_LettersInsideBraces(t *testing.T) {
	text := "{{user}} 4111111111111111 ref}[a]}"
	got := unmarkedSegments(text)
	want := []segment{{offset: 0, text: text}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(segment{})); diff != "" {
		t.Errorf("unmarkedSegments mismatch (-want +got):\n%s", diff)
	}
}
