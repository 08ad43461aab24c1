package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-cact-kit/internal/store"
	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

// adviceWidth はアドバイス本文を折り返す幅なのだ。
const adviceWidth = 72

// advicePolicy はアドバイス HTML で許可するタグだけを残すポリシーです。
var advicePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "ul", "ol", "li", "strong", "b", "em", "i", "br")
	return p
}()

// RenderResult は診断結果のダッシュボードを組み立てるのだ。
func RenderResult(profile domain.UserProfile, result domain.AnalysisResult) string {
	var b strings.Builder

	header := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("CACT Gue Banget"),
		labelStyle.Render("NICKNAME"),
		valueStyle.Render(profile.Nickname),
	)
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s    %s %s\n",
		labelStyle.Render("MBTI"), emphStyle.Render(result.MBTI),
		labelStyle.Render("TEMPERAMENT"), emphStyle.Render(string(result.Temperament)),
	))
	b.WriteString(fmt.Sprintf("%s %s    %s %s\n\n",
		labelStyle.Render("HEXACO"), result.FinalProfile.HexacoSummary,
		labelStyle.Render("HSP"), result.FinalProfile.HSPLevel,
	))

	chips := make([]string, 0, len(result.FinalProfile.KeyTraits))
	for _, t := range result.FinalProfile.KeyTraits {
		chips = append(chips, chipStyle.Render(t))
	}
	b.WriteString(labelStyle.Render("4 KEY TRAITS") + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(chips, " ")) + "\n\n")

	b.WriteString(labelStyle.Render("KOMPETENSI KERJA") + "\n")
	for _, e := range result.FinalProfile.Competencies.Entries() {
		b.WriteString(fmt.Sprintf("  • %-18s %s\n", e[0], e[1]))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("SINTESIS") + "\n")
	b.WriteString(wrap(result.FinalProfile.Synthesis) + "\n\n")
	b.WriteString(labelStyle.Render(strings.ToUpper(string(profile.Generation))+" VIBES") + "\n")
	b.WriteString(wrap(result.Narrative.HumorousContent) + "\n\n")
	b.WriteString(emphStyle.Render(fmt.Sprintf("\"%s\"", result.Narrative.Summary)) + "\n")
	return b.String()
}

// RenderAdvice はアドバイスの HTML 断片をサニタイズし、端末向けのテキストに変換します。
// 許可されていないタグや属性はすべて除去されるのだ。
func RenderAdvice(fragment string) (string, error) {
	clean := advicePolicy.Sanitize(fragment)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return "", fmt.Errorf("アドバイスの解析に失敗しました: %w", err)
	}

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})

	var lines []string
	body := doc.Find("body")
	body.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "ul", "ol":
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if text := strings.TrimSpace(li.Text()); text != "" {
					lines = append(lines, "• "+collapse(text))
				}
			})
		default:
			if text := strings.TrimSpace(s.Text()); text != "" {
				lines = append(lines, collapse(text))
			}
		}
	})

	for i, l := range lines {
		lines[i] = wrap(l)
	}
	return strings.Join(lines, "\n"), nil
}

// RenderCharacters はキャラクターマッチの一覧を描画するのだ。
func RenderCharacters(view []domain.CharacterMatch, warning string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Karakter yang mirip kamu") + "\n")
	for i, c := range view {
		b.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, valueStyle.Render(c.Name), labelStyle.Render("("+c.Origin+")")))
		if c.Justification != "" {
			b.WriteString(wrapIndent(c.Justification, "   ") + "\n")
		}
	}
	if warning != "" {
		b.WriteString(warnStyle.Render(warning) + "\n")
	}
	return b.String()
}

// RenderHistory は保存済みの結果一覧を描画します。
func RenderHistory(items []store.Summary) string {
	if len(items) == 0 {
		return labelStyle.Render("Belum ada hasil tersimpan.") + "\n"
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString(fmt.Sprintf("%s  %s  %s + %s  %s\n",
			it.CreatedAt.Local().Format(time.DateTime),
			valueStyle.Render(it.Nickname),
			emphStyle.Render(it.MBTI), it.Temperament,
			labelStyle.Render(it.ID),
		))
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wrap は幅で折り返し、lipgloss が詰める行末の空白を落とすのだ
func wrap(s string) string {
	return trimLines(lipgloss.NewStyle().Width(adviceWidth).Render(s))
}

func wrapIndent(s, indent string) string {
	return trimLines(lipgloss.NewStyle().Width(adviceWidth).PaddingLeft(len(indent)).Render(s))
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
