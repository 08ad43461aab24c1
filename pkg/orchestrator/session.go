package orchestrator

import (
	"github.com/shouni/go-cact-kit/pkg/domain"
)

// adviceSlot はアドバイスの単一スロットです。Seq が最新のリクエストを表すのだ。
type adviceSlot struct {
	topic domain.Topic
	seq   uint64
	state domain.RequestState
	text  string
}

// characterSlot はキャラクターマッチのスロットです。
// epoch はリストが置き換わるたびに進み、肖像画の整合性チェックに使われます。
type characterSlot struct {
	epoch uint64
	state domain.RequestState
	list  domain.CharacterList
}

// portraitSlot はキャラクター単位の肖像画スロットなのだ。
type portraitSlot struct {
	cycle    uint64
	state    domain.RequestState
	portrait *domain.Portrait
}

// session は1ユーザー分の状態です。Orchestrator のロック下でのみ変更されます。
type session struct {
	id       string
	resultID string
	stage    domain.Stage
	profile  domain.UserProfile
	answers  domain.AnswerSet
	result   *domain.AnalysisResult

	// synthSeq は合成の実行ごとに進み、Reset 後に届いた古い合成結果を捨てるために使うのだ
	synthSeq uint64

	advice     adviceSlot
	characters characterSlot
	portraits  map[string]*portraitSlot
}

func (s *session) resetSecondary() {
	idle := domain.RequestState{Status: domain.StatusIdle}
	s.advice = adviceSlot{state: idle}
	s.characters = characterSlot{state: idle}
	s.portraits = make(map[string]*portraitSlot)
}

// AdviceView はアドバイススロットの読み取り専用ビューです。
type AdviceView struct {
	Topic domain.Topic
	State domain.RequestState
	Text  string
}

// CharactersView はキャラクタースロットの読み取り専用ビューです。
type CharactersView struct {
	State domain.RequestState
	List  domain.CharacterList
}

// PortraitView は肖像画スロットの読み取り専用ビューなのだ。
type PortraitView struct {
	State    domain.RequestState
	Portrait *domain.Portrait
}

// Snapshot は描画用にコピーされたセッション状態です。
// 返された値を変更しても Orchestrator には影響しません。
type Snapshot struct {
	SessionID  string
	ResultID   string
	Stage      domain.Stage
	Profile    domain.UserProfile
	Answers    domain.AnswerSet
	Result     *domain.AnalysisResult
	Advice     AdviceView
	Characters CharactersView
	Portraits  map[string]PortraitView
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		ResultID:  s.resultID,
		Stage:     s.stage,
		Profile:   s.profile,
		Answers:   s.answers.Clone(),
		Advice: AdviceView{
			Topic: s.advice.topic,
			State: s.advice.state,
			Text:  s.advice.text,
		},
		Characters: CharactersView{
			State: s.characters.state,
			List:  append(domain.CharacterList(nil), s.characters.list...),
		},
		Portraits: make(map[string]PortraitView, len(s.portraits)),
	}
	if s.result != nil {
		r := s.result.Clone()
		snap.Result = &r
	}
	for name, slot := range s.portraits {
		snap.Portraits[name] = PortraitView{State: slot.state, Portrait: clonePortrait(slot.portrait)}
	}
	return snap
}

func clonePortrait(p *domain.Portrait) *domain.Portrait {
	if p == nil {
		return nil
	}
	c := *p
	c.Composite = append([]byte(nil), p.Composite...)
	c.Overlay.Traits = append([]string(nil), p.Overlay.Traits...)
	if p.Raw != nil {
		raw := *p.Raw
		raw.Data = append([]byte(nil), p.Raw.Data...)
		c.Raw = &raw
	}
	return &c
}
