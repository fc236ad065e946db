package quizsession

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/etraincon/learning-service/internal/models"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

func mcq(id uint) models.QuizPayload {
	return models.QuizPayload{ID: id, QuestionType: models.MultipleChoice, Question: "mcq", Options: []string{"A. x", "B. y"}}
}

func open(id uint) models.QuizPayload {
	return models.QuizPayload{ID: id, QuestionType: models.OpenEnded, Question: "open"}
}

type fixture struct {
	store *Store
	clock *fakeClock
	timer *fakeTimer
	ctrl  *Controller
	saved []*Results
}

func newFixture(t *testing.T, quizType QuizType, questions ...models.QuizPayload) *fixture {
	t.Helper()
	f := &fixture{
		store: NewStore(NewMemoryBackend()),
		clock: &fakeClock{now: t0},
	}
	if err := f.store.SaveQuizData(&QuizData{CourseID: 7, QuizType: quizType, Questions: questions, SavedAt: t0}); err != nil {
		t.Fatal(err)
	}
	f.ctrl = NewController(f.store, Config{
		Clock: f.clock.Now,
		AfterFunc: func(d time.Duration, fn func()) Timer {
			f.timer = &fakeTimer{d: d, fire: fn}
			return f.timer
		},
		OnSubmit: func(r *Results) { f.saved = append(f.saved, r) },
	})
	return f
}

func (f *fixture) start(t *testing.T, quizType QuizType) {
	t.Helper()
	if err := f.ctrl.Load(7, quizType); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		questions   []models.QuizPayload
		answers     []string
		wantCorrect int
		wantTotal   int
		wantScore   int
	}{
		{
			name:        "two of three answered",
			questions:   []models.QuizPayload{mcq(1), mcq(2), mcq(3)},
			answers:     []string{"A", "", "C"},
			wantCorrect: 2, wantTotal: 3, wantScore: 67,
		},
		{
			name:        "open ended excluded",
			questions:   []models.QuizPayload{mcq(1), open(2)},
			answers:     []string{"A", ""},
			wantCorrect: 1, wantTotal: 1, wantScore: 100,
		},
		{
			name:        "no multiple choice",
			questions:   []models.QuizPayload{open(1), open(2)},
			answers:     []string{"text", "text"},
			wantCorrect: 0, wantTotal: 0, wantScore: 0,
		},
		{
			name:        "whitespace is not an answer",
			questions:   []models.QuizPayload{mcq(1), mcq(2)},
			answers:     []string{"  ", "B"},
			wantCorrect: 1, wantTotal: 2, wantScore: 50,
		},
		{
			name:        "short answer list",
			questions:   []models.QuizPayload{mcq(1), mcq(2), mcq(3)},
			answers:     []string{"A"},
			wantCorrect: 1, wantTotal: 3, wantScore: 33,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, total, score := Score(tt.questions, tt.answers)
			if correct != tt.wantCorrect || total != tt.wantTotal || score != tt.wantScore {
				t.Errorf("Score() = (%d, %d, %d), want (%d, %d, %d)",
					correct, total, score, tt.wantCorrect, tt.wantTotal, tt.wantScore)
			}
		})
	}
}

func TestController_FullAttempt(t *testing.T) {
	f := newFixture(t, Trial, mcq(1), mcq(2), mcq(3))
	f.start(t, Trial)

	if f.timer.d != 15*time.Minute {
		t.Errorf("timer = %v, want 15m", f.timer.d)
	}

	if err := f.ctrl.Next(); !errors.Is(err, ErrAnswerRequired) {
		t.Errorf("Next() without answer error = %v", err)
	}
	mustDo(t, f.ctrl.SetAnswer("A"))
	mustDo(t, f.ctrl.Next())

	if flagged, err := f.ctrl.ToggleFlag(); err != nil || !flagged {
		t.Errorf("ToggleFlag() = %v, %v", flagged, err)
	}
	mustDo(t, f.ctrl.SetAnswer("B"))
	mustDo(t, f.ctrl.Next())

	pos, err := f.ctrl.Current()
	if err != nil || pos.Index != 2 || !pos.IsLast {
		t.Fatalf("Current() = %+v, %v", pos, err)
	}
	if err := f.ctrl.SetAnswer("C"); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Next(); !errors.Is(err, ErrLastQuestion) {
		t.Errorf("Next() on last question error = %v", err)
	}

	f.clock.Advance(4*time.Minute + 30*time.Second)
	if got := f.ctrl.Remaining(); got != 10*time.Minute+30*time.Second {
		t.Errorf("Remaining() = %v", got)
	}

	results, err := f.ctrl.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := &Results{
		CourseID:         7,
		QuizType:         Trial,
		Score:            100,
		Correct:          3,
		TotalScored:      3,
		TotalQuestions:   3,
		TimeUsed:         270,
		Answers:          []string{"A", "B", "C"},
		Questions:        []models.QuizPayload{mcq(1), mcq(2), mcq(3)},
		FlaggedQuestions: []int{1},
		SubmittedAt:      t0.Add(270 * time.Second),
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if !f.timer.stopped {
		t.Error("timer not stopped on submit")
	}
	if f.ctrl.State() != Submitted || len(f.saved) != 1 {
		t.Errorf("state = %v, callbacks = %d", f.ctrl.State(), len(f.saved))
	}

	stored, err := f.store.TakeResults()
	if err != nil || stored.Score != 100 {
		t.Fatalf("TakeResults() = %+v, %v", stored, err)
	}
	if _, err := f.store.TakeResults(); !errors.Is(err, ErrNoResults) {
		t.Errorf("second TakeResults() error = %v, want ErrNoResults", err)
	}

	if _, err := f.ctrl.Submit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Submit() error = %v", err)
	}
}

func TestController_SubmitOnlyOnLastQuestion(t *testing.T) {
	f := newFixture(t, Trial, mcq(1), mcq(2), mcq(3))
	f.start(t, Trial)

	if _, err := f.ctrl.Submit(); !errors.Is(err, ErrNotLastQuestion) {
		t.Fatalf("Submit() on first question error = %v, want ErrNotLastQuestion", err)
	}
	mustDo(t, f.ctrl.SetAnswer("A"))
	mustDo(t, f.ctrl.Next())
	mustDo(t, f.ctrl.SetAnswer("B"))
	if _, err := f.ctrl.Submit(); !errors.Is(err, ErrNotLastQuestion) {
		t.Fatalf("Submit() on second question error = %v, want ErrNotLastQuestion", err)
	}
	if f.ctrl.State() != InProgress || len(f.saved) != 0 {
		t.Fatalf("state = %v, saves = %d after rejected submit", f.ctrl.State(), len(f.saved))
	}

	mustDo(t, f.ctrl.Next())
	results, err := f.ctrl.Submit()
	if err != nil {
		t.Fatal(err)
	}
	if results.Correct != 2 || results.Score != 67 {
		t.Errorf("results = %d correct, score %d; want 2, 67", results.Correct, results.Score)
	}
}

func TestController_TimerSubmitsFromAnyQuestion(t *testing.T) {
	f := newFixture(t, Trial, mcq(1), mcq(2), mcq(3))
	f.start(t, Trial)

	mustDo(t, f.ctrl.SetAnswer("A"))
	f.clock.Advance(15 * time.Minute)
	f.timer.fire()

	r := f.ctrl.Results()
	if f.ctrl.State() != Submitted || r == nil || !r.AutoSubmitted {
		t.Fatalf("state = %v, results = %+v", f.ctrl.State(), r)
	}
	if r.Correct != 1 || r.Score != 33 {
		t.Errorf("results = %d correct, score %d; want 1, 33", r.Correct, r.Score)
	}
}

func TestController_TimerAutoSubmits(t *testing.T) {
	f := newFixture(t, Final, mcq(1), open(2))
	f.start(t, Final)

	if f.timer.d != 45*time.Minute {
		t.Errorf("timer = %v, want 45m", f.timer.d)
	}

	f.clock.Advance(46 * time.Minute)
	f.timer.fire()

	if f.ctrl.State() != Submitted {
		t.Fatalf("state = %v, want submitted", f.ctrl.State())
	}
	r := f.ctrl.Results()
	if !r.AutoSubmitted || r.Score != 0 || r.TimeUsed != 45*60 {
		t.Errorf("results = %+v", r)
	}
	if f.ctrl.Remaining() != 0 {
		t.Errorf("Remaining() after submit = %v", f.ctrl.Remaining())
	}

	if err := f.ctrl.SetAnswer("late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SetAnswer() after expiry error = %v", err)
	}
}

func TestController_ManualSubmitWinsOverTimer(t *testing.T) {
	f := newFixture(t, Trial, mcq(1))
	f.start(t, Trial)

	if _, err := f.ctrl.Submit(); err != nil {
		t.Fatal(err)
	}
	f.timer.fire()

	if len(f.saved) != 1 || f.ctrl.Results().AutoSubmitted {
		t.Errorf("timer fired a second submission: %d saves", len(f.saved))
	}
}

func TestController_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		courseID uint
		quizType QuizType
		advance  time.Duration
		wantErr  error
	}{
		{name: "other course", courseID: 8, quizType: Trial, wantErr: ErrQuizDataNotFound},
		{name: "other quiz type", courseID: 7, quizType: Final, wantErr: ErrQuizDataNotFound},
		{name: "stale", courseID: 7, quizType: Trial, advance: time.Hour + time.Second, wantErr: ErrQuizDataExpired},
		{name: "exactly one hour old", courseID: 7, quizType: Trial, advance: time.Hour, wantErr: ErrQuizDataExpired},
		{name: "bad type", courseID: 7, quizType: "mock", wantErr: ErrInvalidQuizType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Trial, mcq(1))
			f.clock.Advance(tt.advance)

			err := f.ctrl.Load(tt.courseID, tt.quizType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if f.ctrl.State() != Error || !errors.Is(f.ctrl.Err(), tt.wantErr) {
				t.Errorf("state = %v, err = %v", f.ctrl.State(), f.ctrl.Err())
			}
			if err := f.ctrl.Start(); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Start() from error state = %v", err)
			}
		})
	}

	t.Run("just under one hour old is fresh", func(t *testing.T) {
		f := newFixture(t, Trial, mcq(1))
		f.clock.Advance(time.Hour - time.Second)
		if err := f.ctrl.Load(7, Trial); err != nil {
			t.Errorf("Load() error = %v", err)
		}
	})

	t.Run("nothing stored", func(t *testing.T) {
		ctrl := NewController(NewStore(NewMemoryBackend()), Config{})
		if err := ctrl.Load(7, Trial); !errors.Is(err, ErrQuizDataNotFound) {
			t.Errorf("Load() error = %v", err)
		}
	})

	t.Run("empty question set", func(t *testing.T) {
		f := newFixture(t, Trial)
		if err := f.ctrl.Load(7, Trial); !errors.Is(err, ErrNoQuestions) {
			t.Errorf("Load() error = %v", err)
		}
	})
}

func TestController_ActionsBeforeStart(t *testing.T) {
	f := newFixture(t, Trial, mcq(1))
	mustDo(t, f.ctrl.Load(7, Trial))

	if got := f.ctrl.Remaining(); got != 15*time.Minute {
		t.Errorf("Remaining() before start = %v", got)
	}
	if err := f.ctrl.SetAnswer("A"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("SetAnswer() = %v", err)
	}
	if _, err := f.ctrl.Submit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Submit() = %v", err)
	}
	if err := f.ctrl.Load(7, Trial); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Load() = %v", err)
	}
}

func TestResultsBandAndCertificate(t *testing.T) {
	tests := []struct {
		quizType QuizType
		score    int
		band     Band
		cert     bool
	}{
		{Final, 95, BandExcellent, true},
		{Final, 90, BandExcellent, true},
		{Final, 80, BandGood, true},
		{Final, 79, BandFair, false},
		{Trial, 85, BandGood, false},
		{Trial, 70, BandFair, false},
		{Trial, 69, BandNeedsImprovement, false},
		{Final, 0, BandNeedsImprovement, false},
	}
	for _, tt := range tests {
		r := &Results{QuizType: tt.quizType, Score: tt.score}
		if got := r.Band(); got != tt.band {
			t.Errorf("%s %d: Band() = %s, want %s", tt.quizType, tt.score, got, tt.band)
		}
		if got := r.CertificateEligible(); got != tt.cert {
			t.Errorf("%s %d: CertificateEligible() = %v, want %v", tt.quizType, tt.score, got, tt.cert)
		}
	}
}

func TestStore_User(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	if _, err := s.User(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("User() error = %v", err)
	}
	mustDo(t, s.SaveUser(&models.UserSummary{ID: 3, Username: "ann", Email: "ann@example.com"}))
	u, err := s.User()
	if err != nil || u.ID != 3 {
		t.Fatalf("User() = %+v, %v", u, err)
	}
	mustDo(t, s.ClearUser())
	mustDo(t, s.ClearUser())
	if _, err := s.User(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("User() after clear error = %v", err)
	}
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(b)
	data := &QuizData{CourseID: 7, QuizType: Trial, Questions: []models.QuizPayload{mcq(1), open(2)}, SavedAt: t0}
	mustDo(t, s.SaveQuizData(data))

	// A second store over the same directory sees the saved quiz.
	b2, _ := NewFileBackend(dir)
	got, err := NewStore(b2).LoadQuizData(7, Trial, t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("quiz data mismatch (-want +got):\n%s", diff)
	}

	mustDo(t, s.ClearQuizData())
	if _, err := s.LoadQuizData(7, Trial, t0); !errors.Is(err, ErrQuizDataNotFound) {
		t.Errorf("LoadQuizData() after clear error = %v", err)
	}
	if _, err := b.Get("../escape"); err == nil {
		t.Error("Get() accepted a path-like key")
	}
}

func TestExportResults(t *testing.T) {
	r := &Results{
		CourseID:         7,
		QuizType:         Final,
		Score:            83,
		Correct:          5,
		TotalScored:      6,
		TotalQuestions:   7,
		TimeUsed:         600,
		Answers:          []string{"A", "my essay"},
		Questions:        []models.QuizPayload{mcq(1), open(2)},
		FlaggedQuestions: []int{1},
		SubmittedAt:      t0,
	}
	var buf bytes.Buffer
	if err := ExportResults(r, &buf); err != nil {
		t.Fatalf("ExportResults() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]string{}
	for _, row := range summary {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	if values["Score"] != "83" || values["Band"] != "good" || values["Certificate eligible"] != "TRUE" {
		t.Errorf("summary = %v", values)
	}

	rows, err := f.GetRows(questionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("question rows = %d, want header + 2", len(rows))
	}
	if rows[2][1] != "open_ended" || rows[2][4] != "my essay" || rows[2][5] != "TRUE" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
