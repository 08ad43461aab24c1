package domain

import (
	"fmt"
	"strings"
)

// Gender は性別区分です。
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender は大文字小文字を無視して Gender に変換するのだ。
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "laki-laki", "pria":
		return GenderMale, nil
	case "female", "f", "perempuan", "wanita":
		return GenderFemale, nil
	}
	return "", &ValidationError{Field: "gender", Reason: fmt.Sprintf("不明な性別です: %q", s)}
}

// Generation は年齢から導出される世代区分なのだ。
type Generation string

const (
	GenX Generation = "Gen X"
	GenY Generation = "Gen Y"
	GenZ Generation = "Gen Z"
)

// 世代判定の境界年齢
const (
	genXMinAge = 45
	genYMinAge = 29
)

// GenerationFromAge は年齢から世代を判定します。
func GenerationFromAge(age int) Generation {
	switch {
	case age >= genXMinAge:
		return GenX
	case age >= genYMinAge:
		return GenY
	default:
		return GenZ
	}
}

// UserProfile はインテーク時に入力されるユーザー情報です。
// クイズ開始後は変更されません。
type UserProfile struct {
	Nickname   string     `json:"nickname"`
	Age        int        `json:"age"`
	Gender     Gender     `json:"gender"`
	Occupation string     `json:"occupation"`
	Generation Generation `json:"generation"`
}

// NewUserProfile は入力を検証し、世代を導出した UserProfile を返すのだ。
func NewUserProfile(nickname string, age int, gender Gender, occupation string) (UserProfile, error) {
	p := UserProfile{
		Nickname:   strings.TrimSpace(nickname),
		Age:        age,
		Gender:     gender,
		Occupation: strings.TrimSpace(occupation),
	}
	if err := p.validateIntake(); err != nil {
		return UserProfile{}, err
	}
	p.Generation = GenerationFromAge(age)
	return p, nil
}

// Validate は保存済みデータなどから復元したプロフィールを検証します。
func (p UserProfile) Validate() error {
	if err := p.validateIntake(); err != nil {
		return err
	}
	if p.Generation != GenerationFromAge(p.Age) {
		return &ValidationError{Field: "generation", Reason: fmt.Sprintf("年齢 %d と世代 %q が一致しません", p.Age, p.Generation)}
	}
	return nil
}

func (p UserProfile) validateIntake() error {
	if p.Nickname == "" {
		return &ValidationError{Field: "nickname", Reason: "ニックネームは必須です"}
	}
	if p.Age <= 0 {
		return &ValidationError{Field: "age", Reason: fmt.Sprintf("年齢は正の整数である必要があります: %d", p.Age)}
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return &ValidationError{Field: "gender", Reason: fmt.Sprintf("不明な性別です: %q", p.Gender)}
	}
	return nil
}

func (p UserProfile) String() string {
	return fmt.Sprintf("%s (%d, %s, %s)", p.Nickname, p.Age, p.Gender, p.Generation)
}
