package analysis

import "github.com/stretchr/testify/mock"

// MockScorer mocks the Scorer interface
type MockScorer struct {
	mock.Mock
}

// PolarityScores mocks the PolarityScores method
func (m *MockScorer) PolarityScores(text string) Scores {
	args := m.Called(text)
	return args.Get(0).(Scores)
}
