package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

var genderItems = []string{"Laki-laki", "Perempuan"}

// IntakeRunner はクイズ前のプロフィール入力を担当するのだ。
type IntakeRunner struct {
	prompter Prompter
}

// NewIntakeRunner は IntakeRunner を生成します。
func NewIntakeRunner(p Prompter) *IntakeRunner {
	return &IntakeRunner{prompter: p}
}

// Run はニックネーム・年齢・性別・職業を尋ね、検証済みのプロフィールを返すのだ。
func (r *IntakeRunner) Run() (domain.UserProfile, error) {
	nickname, err := r.prompter.Input("Nickname", "", requireText("Nickname"))
	if err != nil {
		return domain.UserProfile{}, err
	}

	ageText, err := r.prompter.Input("Usia", "", validateAge)
	if err != nil {
		return domain.UserProfile{}, err
	}
	age, _ := strconv.Atoi(strings.TrimSpace(ageText))

	idx, err := r.prompter.Select("Jenis Kelamin", genderItems)
	if err != nil {
		return domain.UserProfile{}, err
	}
	gender := domain.GenderMale
	if idx == 1 {
		gender = domain.GenderFemale
	}

	occupation, err := r.prompter.Input("Pekerjaan", "", requireText("Pekerjaan"))
	if err != nil {
		return domain.UserProfile{}, err
	}

	return domain.NewUserProfile(nickname, age, gender, occupation)
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s wajib diisi", field)
		}
		return nil
	}
}

func validateAge(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("usia harus berupa angka")
	}
	if n <= 0 || n > 120 {
		return errors.New("usia tidak valid")
	}
	return nil
}
