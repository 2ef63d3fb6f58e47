package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/annotate"
	"github.com/jvaisto/clerkbot/internal/classify"
	"github.com/jvaisto/clerkbot/internal/eligibility"
	"github.com/jvaisto/clerkbot/internal/merge"
)

var (
	sectionHeader = regexp.MustCompile(`(?m)^==([^=].*?)==[ \t]*$`)
	threadHeader  = regexp.MustCompile(`(?m)^===([^=].*?)===[ \t]*$`)
	testNow       = time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func baseTask() Task {
	return Task{
		Page:            "Project:False positives",
		Mode:            ModeGrouped,
		SectionHeader:   sectionHeader,
		Classifier:      classify.New([]classify.Marker{{Name: "status", OpenValues: []string{"", "onhold"}}}),
		Engine:          eligibility.New(eligibility.Rules{DefaultDelay: 8 * time.Hour}),
		ArchiveTemplate: "{page}/Archive",
	}
}

func TestRunArchivesClosedOldSection(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nHello\n{{status|closed}}\nReply. 12:00, 5 June 2021 (UTC)\n"
	task := baseTask()

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: -1})
	require.NoError(t, err)

	require.Len(t, res.Archived, 1)
	require.Equal(t, "Alice", res.Archived[0].GroupLabel)
	require.Equal(t, "", res.NewText)
	require.True(t, res.Changed)
	require.Equal(t, "Project:False positives/Archive", res.DestinationName)
	require.Contains(t, res.DestinationText, "== Alice ==")
	require.Contains(t, res.DestinationText, "Hello")
	require.Contains(t, res.Summary, "Archive one section")
}

func TestRunBlockerKeywordKeepsSection(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nHello, please wait for review.\n{{status|closed}}\nReply. 12:00, 5 June 2021 (UTC)\n"
	task := baseTask()
	task.Engine = eligibility.New(eligibility.Rules{
		Blockers:     []string{"please wait"},
		DefaultDelay: 8 * time.Hour,
	})

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: -1})
	require.NoError(t, err)

	require.Empty(t, res.Archived)
	require.Equal(t, page, res.NewText)
	require.False(t, res.Changed)
	require.Empty(t, res.DestinationName)
}

func TestRunOnHoldSectionStaysOpen(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nHello\n{{status|onhold}}\nReply. 12:00, 5 June 2021 (UTC)\n"
	task := baseTask()

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: -1})
	require.NoError(t, err)
	require.Empty(t, res.Archived)
}

func TestRunSkipsWhenPageLostSections(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nHello\n"
	task := baseTask()
	task.Mode = ModeRolling

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: 3})
	require.NoError(t, err)

	require.True(t, res.Skipped)
	require.Equal(t, page, res.NewText)
	require.Empty(t, res.Archived)
}

func TestRunRollingCapacity(t *testing.T) {
	t.Parallel()

	var page string
	for i := 1; i <= 3; i++ {
		page += fmt.Sprintf("== Thread %d ==\n{{status|done}}\nOld. 12:00, 1 May 2021 (UTC)\n", i)
	}
	dest := "Archive intro.\n== Kept ==\nkept body\n"

	task := baseTask()
	task.Mode = ModeRolling
	task.MaxArchived = 2

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{
		PageText:             page,
		DestinationText:      dest,
		PreviousSectionCount: -1,
	})
	require.NoError(t, err)

	require.Len(t, res.Archived, 3)
	// 1 existing + 3 new = 4, capacity 2 keeps only the last two.
	require.NotContains(t, res.DestinationText, "== Kept ==")
	require.NotContains(t, res.DestinationText, "== Thread 1 ==")
	require.Contains(t, res.DestinationText, "== Thread 2 ==")
	require.Contains(t, res.DestinationText, "== Thread 3 ==")
	require.Contains(t, res.Summary, "Archive 3 sections")
}

func TestRunGroupedTwoLevels(t *testing.T) {
	t.Parallel()

	page := "Intro.\n" +
		"== Bot status ==\n" +
		"=== Request one ===\n{{sr-request|status=done}}\nHandled. 10:00, 1 June 2021 (UTC)\n" +
		"=== Request two ===\n{{sr-request|status=}}\nStill open.\n" +
		"== Checkuser ==\n" +
		"=== Request three ===\n{{sr-request|status=done}}\nHandled. 09:00, 2 June 2021 (UTC)\n"

	dest := "{{archive box}}\n== Bot status ==\n=== Older request ===\nolder\n"

	task := baseTask()
	task.GroupHeader = sectionHeader
	task.SectionHeader = threadHeader
	task.Classifier = classify.New([]classify.Marker{{Name: "sr-request"}})
	task.ArchiveTemplate = "{page}/{year}-{month}"

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{
		PageText:             page,
		DestinationText:      dest,
		PreviousSectionCount: -1,
	})
	require.NoError(t, err)

	require.Len(t, res.Archived, 2)
	require.Equal(t, "Bot status", res.Archived[0].GroupLabel)
	require.Equal(t, "Checkuser", res.Archived[1].GroupLabel)

	// The open request stays on the page; archived ones are gone.
	require.Contains(t, res.NewText, "=== Request two ===")
	require.NotContains(t, res.NewText, "=== Request one ===")
	require.NotContains(t, res.NewText, "=== Request three ===")

	require.Equal(t, "Project:False positives/2021-6", res.DestinationName)
	// Request one joins the existing group after its older sibling; a new
	// Checkuser group is created at the end.
	require.Contains(t, res.DestinationText, "=== Older request ===")
	require.Contains(t, res.DestinationText, "=== Request one ===")
	require.Contains(t, res.DestinationText, "== Checkuser ==")
}

func TestRunGroupedUnparseableDestinationAborts(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\n{{status|done}}\nDone. 12:00, 5 June 2021 (UTC)\n"
	task := baseTask()

	r := New(fixedClock{testNow}, zap.NewNop())
	_, err := r.Run(context.Background(), task, Input{
		PageText:             page,
		DestinationText:      "loose text with no group headers\n",
		PreviousSectionCount: -1,
	})
	require.ErrorIs(t, err, merge.ErrUnparseableDestination)
}

func TestRunAnnotatesOpenSection(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nA fresh report.\n"
	task := baseTask()
	task.Mode = ModeRolling
	task.Pipeline = annotate.NewPipeline(zap.NewNop(), annotate.NewBlockedUserNotice())
	task.Facts = annotate.ProviderFunc(func(_ context.Context, label, _ string) (annotate.Facts, error) {
		return annotate.Facts{SectionUser: label, Blocked: true, BlockedBy: "AdminB"}, nil
	})

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: -1})
	require.NoError(t, err)

	require.Empty(t, res.Archived)
	require.Len(t, res.Modified, 1)
	require.Equal(t, "Alice", res.Modified[0].Label)
	require.Contains(t, res.NewText, "{{EFFP|b|Alice|AdminB|bot=1}}")
	require.Contains(t, res.Summary, "Processed a section: Notify that user is blocked")
}

func TestRunFactLookupFailureDegrades(t *testing.T) {
	t.Parallel()

	page := "== Alice ==\nA fresh report.\n"
	task := baseTask()
	task.Mode = ModeRolling
	task.Pipeline = annotate.NewPipeline(zap.NewNop(), annotate.NewBlockedUserNotice())
	task.Facts = annotate.ProviderFunc(func(context.Context, string, string) (annotate.Facts, error) {
		return annotate.Facts{}, errors.New("api unreachable")
	})

	r := New(fixedClock{testNow}, zap.NewNop())
	res, err := r.Run(context.Background(), task, Input{PageText: page, PreviousSectionCount: -1})
	require.NoError(t, err)

	require.Empty(t, res.Modified)
	require.Equal(t, page, res.NewText)
	require.False(t, res.Changed)
}

func TestRunUnknownMode(t *testing.T) {
	t.Parallel()

	task := baseTask()
	task.Mode = "sideways"

	r := New(fixedClock{testNow}, zap.NewNop())
	_, err := r.Run(context.Background(), task, Input{PageText: ""})
	require.Error(t, err)
}

func TestExpandDestination(t *testing.T) {
	t.Parallel()

	now := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Reports/2021-6", ExpandDestination("{page}/{year}-{month}", "Reports", now))
	require.Equal(t, "Reports/2021-w24", ExpandDestination("{page}/{year}-w{week}", "Reports", now))
}

func TestNormalizeReplyGaps(t *testing.T) {
	t.Parallel()

	in := "Header\n\n\n: A reply. ~~~~\nTrailing\n"
	require.Equal(t, "Header\n: A reply. ~~~~\nTrailing\n", normalizeReplyGaps(in))
}
