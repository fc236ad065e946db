package quizsession

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// State of a quiz attempt.
type State int

const (
	Loading State = iota
	Ready
	InProgress
	Submitted
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case InProgress:
		return "in_progress"
	case Submitted:
		return "submitted"
	case Error:
		return "error"
	}
	return "unknown"
}

var (
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrAnswerRequired    = errors.New("answer the current question before moving on")
	ErrLastQuestion      = errors.New("already on the last question")
	ErrNotLastQuestion   = errors.New("submit is available on the last question")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrInvalidQuizType   = errors.New("quiz type must be trial or final")
)

// Timer is the part of *time.Timer the controller uses.
type Timer interface {
	Stop() bool
}

// Config wires the controller's time source and the submission callback.
type Config struct {
	Clock     func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
	// OnSubmit runs after results are saved, including on timer expiry. It is called
	// without the controller lock held.
	OnSubmit func(*Results)
}

// Controller drives one attempt: load, start, answer question by question, submit.
// All methods are safe to call from the timer goroutine and the UI concurrently.
type Controller struct {
	mu     sync.Mutex
	store  *Store
	config Config

	state     State
	err       error
	data      *QuizData
	answers   []string
	flagged   map[int]bool
	index     int
	startedAt time.Time
	limit     time.Duration
	timer     Timer
	results   *Results
}

func NewController(store *Store, config Config) *Controller {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.AfterFunc == nil {
		config.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return &Controller{store: store, config: config, state: Loading}
}

// Load reads the stored quiz for the course and quiz type. Missing, stale or mismatched
// data moves the controller to Error.
func (c *Controller) Load(courseID uint, quizType QuizType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Loading {
		return ErrInvalidTransition
	}
	if !quizType.IsValid() {
		return c.fail(ErrInvalidQuizType)
	}

	data, err := c.store.LoadQuizData(courseID, quizType, c.config.Clock())
	if err != nil {
		return c.fail(err)
	}
	if len(data.Questions) == 0 {
		return c.fail(ErrNoQuestions)
	}

	c.data = data
	c.answers = make([]string, len(data.Questions))
	c.flagged = map[int]bool{}
	c.limit = TimeLimit(quizType)
	c.state = Ready
	return nil
}

func (c *Controller) fail(err error) error {
	c.state = Error
	c.err = err
	return err
}

// Start begins the countdown.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready {
		return ErrInvalidTransition
	}
	c.startedAt = c.config.Clock()
	c.state = InProgress
	c.timer = c.config.AfterFunc(c.limit, c.expire)
	return nil
}

// SetAnswer replaces the answer to the current question.
func (c *Controller) SetAnswer(answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return ErrInvalidTransition
	}
	c.answers[c.index] = answer
	return nil
}

// Next moves to the following question. The current one must be answered.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(c.answers[c.index]) == "" {
		return ErrAnswerRequired
	}
	if c.index == len(c.answers)-1 {
		return ErrLastQuestion
	}
	c.index++
	return nil
}

// ToggleFlag marks or unmarks the current question for review and returns the new mark.
func (c *Controller) ToggleFlag() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return false, ErrInvalidTransition
	}
	if c.flagged[c.index] {
		delete(c.flagged, c.index)
		return false, nil
	}
	c.flagged[c.index] = true
	return true, nil
}

// Submit scores the attempt, including whatever is entered on the last question.
// Only the countdown can end an attempt before the last question.
func (c *Controller) Submit() (*Results, error) {
	c.mu.Lock()
	if c.state == InProgress && c.index != len(c.answers)-1 {
		c.mu.Unlock()
		return nil, ErrNotLastQuestion
	}
	c.mu.Unlock()
	return c.submit(false)
}

func (c *Controller) expire() {
	// Losing the race to a manual submit is expected.
	_, _ = c.submit(true)
}

func (c *Controller) submit(auto bool) (*Results, error) {
	c.mu.Lock()
	if c.state != InProgress {
		c.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if c.timer != nil {
		c.timer.Stop()
	}

	now := c.config.Clock()
	used := now.Sub(c.startedAt)
	if used > c.limit {
		used = c.limit
	}

	correct, totalScored, score := Score(c.data.Questions, c.answers)
	results := &Results{
		CourseID:         c.data.CourseID,
		QuizType:         c.data.QuizType,
		Score:            score,
		Correct:          correct,
		TotalScored:      totalScored,
		TotalQuestions:   len(c.data.Questions),
		TimeUsed:         int(used / time.Second),
		Answers:          append([]string(nil), c.answers...),
		Questions:        c.data.Questions,
		FlaggedQuestions: c.flaggedList(),
		SubmittedAt:      now,
		AutoSubmitted:    auto,
	}

	c.state = Submitted
	c.results = results
	if err := c.store.SaveResults(results); err != nil {
		c.err = err
	}
	saveErr := c.err
	onSubmit := c.config.OnSubmit
	c.mu.Unlock()

	if onSubmit != nil {
		onSubmit(results)
	}
	return results, saveErr
}

func (c *Controller) flaggedList() []int {
	out := make([]int, 0, len(c.flagged))
	for i := range c.flagged {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Remaining is the time left on the countdown; the full limit before Start and zero
// after submission.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Ready:
		return c.limit
	case InProgress:
		left := c.limit - c.config.Clock().Sub(c.startedAt)
		if left < 0 {
			return 0
		}
		return left
	}
	return 0
}

// Position describes the question currently on screen.
type Position struct {
	Index    int
	Total    int
	Question string
	Type     string
	Options  []string
	Answer   string
	Flagged  bool
	IsLast   bool
}

func (c *Controller) Current() (Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return Position{}, ErrInvalidTransition
	}
	q := c.data.Questions[c.index]
	return Position{
		Index:    c.index,
		Total:    len(c.data.Questions),
		Question: q.Question,
		Type:     string(q.QuestionType),
		Options:  q.Options,
		Answer:   c.answers[c.index],
		Flagged:  c.flagged[c.index],
		IsLast:   c.index == len(c.data.Questions)-1,
	}, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the reason the controller entered Error, or a results save failure.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Results returns the submitted results, or nil before submission.
func (c *Controller) Results() *Results {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}
