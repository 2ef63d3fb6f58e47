package summary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

func TestComposeSingleSectionFewReasons(t *testing.T) {
	t.Parallel()

	got := Compose(0, []archiver.SectionReasons{
		{Label: "Alice", Reasons: []string{"fix name", "add note"}},
	})

	require.Contains(t, got, "Processed a section: fix name, add note")
	require.NotContains(t, got, "Archive")
}

func TestComposeSingleSectionManyReasons(t *testing.T) {
	t.Parallel()

	got := Compose(0, []archiver.SectionReasons{
		{Label: "Alice", Reasons: []string{"one", "two", "three", "four"}},
	})

	require.Contains(t, got, "Processed a section")
	require.NotContains(t, got, "one, two")
}

func TestComposeManySectionsSharedReason(t *testing.T) {
	t.Parallel()

	got := Compose(0, []archiver.SectionReasons{
		{Label: "Alice", Reasons: []string{"add note"}},
		{Label: "Bob", Reasons: []string{"add note"}},
	})

	require.Contains(t, got, "Process 2 sections (add note)")
}

func TestComposeManySectionsMixedReasons(t *testing.T) {
	t.Parallel()

	got := Compose(0, []archiver.SectionReasons{
		{Label: "Alice", Reasons: []string{"add note"}},
		{Label: "Bob", Reasons: []string{"fix name"}},
	})

	require.Contains(t, got, "Process 2 sections")
	require.NotContains(t, got, "(")
}

func TestComposeArchiveCounts(t *testing.T) {
	t.Parallel()

	require.Contains(t, Compose(1, nil), "Archive one section")
	require.Contains(t, Compose(3, nil), "Archive 3 sections")
}

func TestComposeCombined(t *testing.T) {
	t.Parallel()

	got := Compose(2, []archiver.SectionReasons{
		{Label: "Alice", Reasons: []string{"add note"}},
	})
	require.Equal(t, "Bot clerking: Processed a section: add note, Archive 2 sections", got)
}

func TestComposeNoActions(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Bot clerking", Compose(0, nil))
}
