package assistant

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const (
	sourceTag     = "[Source: course logistics]"
	objectivesTag = "[Source: Lab Objectives]"
	fallback      = "I can answer course logistics: exam dates, lab exam hours, office hours, " +
		"drop deadlines and AT Lab locations. Try \"When is Lab Exam 3?\""
)

var campuses = []string{"NCC", "SLO"}

// DefaultLabHours is the minimum AT Lab time before each lab exam, used
// when the knowledge file has no lab_hours_N entry.
var DefaultLabHours = map[string]int{
	"1": 2, "2": 3, "3": 4, "4": 4, "5": 4,
	"6": 3, "7": 4, "8": 2, "9": 2, "10": 2,
}

// Raw HTML in answers is escaped; WithUnsafe is not set.
var renderer = goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()))

// Reply is an answer in markdown and rendered HTML.
type Reply struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Matched  bool   `json:"matched"`
}

// Assistant answers logistics questions from a knowledge table.
type Assistant struct {
	kb Knowledge
}

// New creates an assistant over kb.
func New(kb Knowledge) *Assistant {
	if kb == nil {
		kb = Knowledge{}
	}
	return &Assistant{kb: kb}
}

// Ask answers question, falling back to a usage hint when nothing matches.
func (a *Assistant) Ask(question string) (Reply, error) {
	md, ok := a.Answer(question)
	if !ok {
		md = fallback
	}
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return Reply{}, fmt.Errorf("render answer: %w", err)
	}
	return Reply{Markdown: md, HTML: buf.String(), Matched: ok}, nil
}

// Answer returns a markdown answer when the question matches a known topic.
func (a *Assistant) Answer(question string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return "", false
	}
	num := extractNumber(q)

	asksFinal := strings.Contains(q, "final")
	asksLab := strings.Contains(q, "lab") || strings.Contains(q, "practical")
	asksLecture := strings.Contains(q, "lecture") ||
		((strings.Contains(q, "exam") || strings.Contains(q, "test")) && !asksLab)
	asksHours := strings.Contains(q, "hour")

	if len(a.kb) > 0 && (asksLecture || asksFinal) {
		if asksFinal {
			if lines := a.perCampus("final_exam_date_%s", "final_exam_time_%s", ""); len(lines) > 0 {
				return section("Final Exam", lines, sourceTag), true
			}
		}
		if num != "" {
			if lines := a.perCampus("lecture_exam_%s_date_%s", "lecture_exam_%s_time_%s", num); len(lines) > 0 {
				return section("Lecture Exam "+num, lines, sourceTag), true
			}
		}
	}

	if len(a.kb) > 0 && asksLab {
		if num != "" {
			if lines := a.perCampus("lab_exam_%s_date_%s", "", num); len(lines) > 0 {
				out := section("Lab Exam "+num, lines, "")
				if asksHours || strings.Contains(q, "time requirement") || strings.Contains(q, "lab time") {
					if hrs, ok := a.labHours(num); ok {
						out += fmt.Sprintf("\nMinimum lab hours required before Lab Exam %s: **%d**.", num, hrs)
					}
				}
				return out + "\n" + sourceTag, true
			}
		}
		if strings.Contains(q, "schedule") || strings.Contains(q, "when") {
			var rows []string
			for i := 1; i <= 10 && len(rows) < 6; i++ {
				var parts []string
				for _, c := range campuses {
					if d := a.kb[fmt.Sprintf("lab_exam_%d_date_%s", i, c)]; d != "" {
						parts = append(parts, c+": "+d)
					}
				}
				if len(parts) > 0 {
					rows = append(rows, fmt.Sprintf("Lab Exam %d: %s", i, strings.Join(parts, ", ")))
				}
			}
			if len(rows) > 0 {
				return section("Lab Exam Schedule (dates)", rows, sourceTag), true
			}
		}
	}

	if asksHours && asksLab {
		if num != "" {
			if hrs, ok := a.labHours(num); ok {
				return fmt.Sprintf("Minimum lab hours required before **Lab Exam %s**: **%d**.\n%s", num, hrs, objectivesTag), true
			}
		}
		return "Minimum hours vary by exam (typically **2-4 hours**). " +
			"Ask about a specific lab exam number, e.g. \"How many hours for Lab Exam 3?\"\n" + objectivesTag, true
	}

	if strings.Contains(q, "office hour") || strings.Contains(q, "office-hours") {
		var lines []string
		for _, c := range campuses {
			if v := a.kb["office_hours_"+c]; v != "" {
				lines = append(lines, c+": "+v)
			}
		}
		if len(lines) > 0 {
			return section("Office Hours", lines, sourceTag), true
		}
	}

	if strings.Contains(q, "drop") || strings.Contains(q, "withdraw") {
		var lines []string
		if v := a.kb["drop_no_W"]; v != "" {
			lines = append(lines, "Last day to drop **without a W**: "+v)
		}
		if v := a.kb["withdraw_with_W"]; v != "" {
			lines = append(lines, "Last day to **withdraw with a W**: "+v)
		}
		if len(lines) > 0 {
			return section("Deadlines", lines, sourceTag), true
		}
	}

	if strings.Contains(q, "at lab") || (strings.Contains(q, "lab") && strings.Contains(q, "where")) {
		return section("AT Lab Info", []string{
			"SLO AT Lab: Room 2201",
			"NCC AT Lab: Room N2438",
			"Lab exams: Canvas quiz (open-note) + oral exam in AT Lab (closed-note, by appointment).",
			"Missed minimum hours cost **5 points per hour**.",
		}, sourceTag), true
	}
	return "", false
}

// perCampus collects "CAMPUS: date [time]" lines. With num empty the
// patterns take only the campus.
func (a *Assistant) perCampus(datePattern, timePattern, num string) []string {
	key := func(pattern, campus string) string {
		if num == "" {
			return fmt.Sprintf(pattern, campus)
		}
		return fmt.Sprintf(pattern, num, campus)
	}
	var lines []string
	for _, c := range campuses {
		date := a.kb[key(datePattern, c)]
		if date == "" {
			continue
		}
		line := c + ": " + date
		if timePattern != "" {
			if t := a.kb[key(timePattern, c)]; t != "" {
				line += " " + t
			}
		}
		lines = append(lines, line)
	}
	return lines
}

var digitsRE = regexp.MustCompile(`\d+`)

func (a *Assistant) labHours(num string) (int, bool) {
	if v := a.kb["lab_hours_"+num]; v != "" {
		if d := digitsRE.FindString(v); d != "" {
			if n, err := strconv.Atoi(d); err == nil {
				return n, true
			}
		}
	}
	n, ok := DefaultLabHours[num]
	return n, ok
}

var numberWords = []struct {
	re  *regexp.Regexp
	num string
}{
	{regexp.MustCompile(`\bone\b`), "1"},
	{regexp.MustCompile(`\btwo\b`), "2"},
	{regexp.MustCompile(`\bthree\b`), "3"},
	{regexp.MustCompile(`\bfour\b`), "4"},
	{regexp.MustCompile(`\bfive\b`), "5"},
	{regexp.MustCompile(`\bsix\b`), "6"},
	{regexp.MustCompile(`\bseven\b`), "7"},
	{regexp.MustCompile(`\beight\b`), "8"},
	{regexp.MustCompile(`\bnine\b`), "9"},
	{regexp.MustCompile(`\bten\b`), "10"},
}

// extractNumber returns the first run of digits, else the first number word.
func extractNumber(q string) string {
	if d := digitsRE.FindString(q); d != "" {
		return d
	}
	for _, w := range numberWords {
		if w.re.MatchString(q) {
			return w.num
		}
	}
	return ""
}

func section(title string, lines []string, tag string) string {
	var b strings.Builder
	b.WriteString("**" + title + "**\n")
	for i, ln := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ln)
	}
	if tag != "" {
		b.WriteString("\n" + tag)
	}
	return b.String()
}
