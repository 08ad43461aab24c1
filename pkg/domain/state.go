package domain

// Stage はセッションの主フローの状態です。
type Stage string

const (
	StageIntro        Stage = "intro"
	StageQuiz         Stage = "quiz"
	StageSynthesizing Stage = "synthesizing"
	StageResult       Stage = "result"
)

// RequestStatus は二次生成リクエストの三値状態なのだ。
type RequestStatus string

const (
	StatusIdle     RequestStatus = "idle"
	StatusPending  RequestStatus = "pending"
	StatusResolved RequestStatus = "resolved"
	StatusFailed   RequestStatus = "failed"
)

// RequestState は二次生成の種類ごとに保持される状態です。
type RequestState struct {
	Status  RequestStatus
	Message string // 失敗時や部分成功時のユーザー向けメッセージ
}

func (s RequestState) IsPending() bool { return s.Status == StatusPending }

// Topic はアドバイスのトピックです。
type Topic struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}
