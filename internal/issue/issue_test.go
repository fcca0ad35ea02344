// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestValues(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(all), len(issues))
	}
	for i, is := range all {
		if want := Id(i + 1); is.Id() != want {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), want)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", is.Id())
		}
		if len(is.DocLinks()) == 0 {
			t.Errorf("issue %d has no doc links", is.Id())
		}
		for _, link := range is.DocLinks() {
			if !strings.HasPrefix(string(link), "https://") {
				t.Errorf("issue %d doc link %q is not https", is.Id(), link)
			}
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if got := Get(NoWheelId); got == nil || got.Id() != NoWheelId {
		t.Fatalf("Get(NoWheelId) = %v", got)
	}
	if !strings.Contains(string(Get(ArchiveTooLargeId).MarkdownMsg()), "s3_bucket") {
		t.Error("ArchiveTooLarge issue should mention s3_bucket")
	}
	if Get(Id(0)) != nil || Get(Id(999)) != nil {
		t.Error("Get() of an unknown id should return nil")
	}
}

func TestIssue_DocLinksAreCopies(t *testing.T) {
	t.Parallel()

	is := Get(PublishFailedId)
	links := is.DocLinks()
	links[0] = "modified"
	if is.DocLinks()[0] == "modified" {
		t.Error("DocLinks() should return a copy")
	}
}

func TestIssue_Markdown(t *testing.T) {
	t.Parallel()

	md := Get(ModuleNotFoundId).Markdown()
	if !strings.Contains(md, "## See also") {
		t.Errorf("Markdown() missing link section:\n%s", md)
	}
	if !strings.Contains(md, "- <https://pip.pypa.io/en/stable/cli/pip_download/>") {
		t.Errorf("Markdown() missing doc link:\n%s", md)
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(PythonNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if !strings.Contains(out, "--python-version") {
		t.Errorf("Render() output missing flag hint:\n%s", out)
	}
}

func TestIssue_RenderError(t *testing.T) {
	// Not parallel: replaces the package renderer.
	orig := render
	t.Cleanup(func() { render = orig })

	want := errors.New("boom")
	render = func(string, string) (string, error) { return "", want }
	if _, err := Get(NoWheelId).Render("dark"); !errors.Is(err, want) {
		t.Errorf("Render() error = %v, want %v", err, want)
	}
}
