package assistant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logistics = `# BIO 205 logistics

Prose lines are ignored.
::final_exam_date_NCC=Dec 15
::final_exam_time_NCC=10:00 AM
::final_exam_date_SLO=Dec 16
::lecture_exam_2_date_SLO=Oct 1
::lab_exam_3_date_NCC=Oct 8
::lab_exam_3_date_SLO=Oct 9
::lab_exam_1_date_SLO=Sep 10
::lab_hours_3=5 hours
::office_hours_SLO=Mon 1-2 PM
::drop_no_W=Sep 5
::withdraw_with_W=Nov 14
  ::padded-key=spaced value  
`

func testAssistant(t *testing.T) *Assistant {
	t.Helper()
	kb, err := Parse(strings.NewReader(logistics))
	require.NoError(t, err)
	return New(kb)
}

func TestParse(t *testing.T) {
	kb, err := Parse(strings.NewReader(logistics))
	require.NoError(t, err)
	assert.Equal(t, "Dec 15", kb["final_exam_date_NCC"])
	assert.Equal(t, "5 hours", kb["lab_hours_3"])
	assert.Equal(t, "spaced value", kb["padded-key"])
	assert.NotContains(t, kb, "BIO")
}

func TestLoadMissingFile(t *testing.T) {
	kb, err := Load(filepath.Join(t.TempDir(), "none.md"))
	require.NoError(t, err)
	assert.Empty(t, kb)

	path := filepath.Join(t.TempDir(), "kb.md")
	require.NoError(t, os.WriteFile(path, []byte("::a=b\n"), 0o644))
	kb, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, Knowledge{"a": "b"}, kb)
}

func TestAnswers(t *testing.T) {
	a := testAssistant(t)

	cases := []struct {
		question string
		contains []string
	}{
		{"When is the final?", []string{"**Final Exam**", "NCC: Dec 15 10:00 AM", "SLO: Dec 16"}},
		{"when is lecture exam two", []string{"**Lecture Exam 2**", "SLO: Oct 1"}},
		{"When is lab exam 3?", []string{"**Lab Exam 3**", "NCC: Oct 8", "SLO: Oct 9"}},
		{"lab exam 3 hours needed?", []string{"Minimum lab hours required before Lab Exam 3: **5**"}},
		{"lab exam schedule", []string{"Lab Exam 1: SLO: Sep 10", "Lab Exam 3: NCC: Oct 8, SLO: Oct 9"}},
		{"How many hours in the lab before exam 4?", []string{"**Lab Exam 4**: **4**"}},
		{"how many lab hours do I need", []string{"2-4 hours"}},
		{"office hours?", []string{"SLO: Mon 1-2 PM"}},
		{"last day to drop", []string{"without a W**: Sep 5", "withdraw with a W**: Nov 14"}},
		{"where is the AT lab", []string{"Room 2201", "Room N2438"}},
	}
	for _, tc := range cases {
		t.Run(tc.question, func(t *testing.T) {
			got, ok := a.Answer(tc.question)
			require.True(t, ok)
			for _, want := range tc.contains {
				assert.Contains(t, got, want)
			}
		})
	}

	_, ok := a.Answer("what is the meaning of life")
	assert.False(t, ok)
	_, ok = a.Answer("   ")
	assert.False(t, ok)
}

func TestDefaultLabHoursWithoutKnowledge(t *testing.T) {
	a := New(nil)
	got, ok := a.Answer("hours needed for lab exam 6")
	require.True(t, ok)
	assert.Contains(t, got, "**3**")
}

func TestAskRendersHTML(t *testing.T) {
	a := testAssistant(t)

	reply, err := a.Ask("When is lab exam 3?")
	require.NoError(t, err)
	assert.True(t, reply.Matched)
	assert.Contains(t, reply.HTML, "<strong>Lab Exam 3</strong>")
	assert.Contains(t, reply.HTML, "<li>")

	reply, err = a.Ask("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.False(t, reply.Matched)
	assert.NotContains(t, reply.HTML, "<script>")
	assert.Contains(t, reply.Markdown, "Lab Exam 3")
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, "10", extractNumber("lab exam 10 and 2"))
	assert.Equal(t, "7", extractNumber("exam seven"))
	assert.Equal(t, "", extractNumber("someone"))
}
