package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// Brand はエクスポートファイル名の接頭辞なのだ。
	Brand = "CACT"

	resultSubjectPrefix = "Result-"
	defaultSubject      = "anon"
	jpegExt             = ".jpg"
)

// fileNameSanitizer はファイル名に使えない文字を置き換えるための正規表現です。
var fileNameSanitizer = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// FileName は "<brand>-<subject>.jpg" 形式のファイル名を返します。
func FileName(brand, subject string) string {
	subject = strings.Trim(fileNameSanitizer.ReplaceAllString(strings.TrimSpace(subject), "_"), "_.")
	if subject == "" {
		subject = defaultSubject
	}
	return fmt.Sprintf("%s-%s%s", brand, subject, jpegExt)
}

// ResultFileName は結果カードのダウンロード名 "CACT-Result-<nickname>.jpg" を返すのだ。
func ResultFileName(nickname string) string {
	if strings.TrimSpace(nickname) == "" {
		nickname = defaultSubject
	}
	return FileName(Brand, resultSubjectPrefix+nickname)
}

// PortraitFileName はキャラクター肖像画のファイル名を返します。
func PortraitFileName(nickname, character string) string {
	return FileName(Brand, nickname+"-"+character)
}

// resolveLocalPath は出力ディレクトリとファイル名から最終パスを解決するのだ。
// ダウンロードはローカル限定なので、リモートスキームは拒否します。
func resolveLocalPath(baseDir, fileName string) (string, error) {
	if strings.Contains(baseDir, "://") {
		return "", fmt.Errorf("ローカル以外の出力先には対応していません: %s", baseDir)
	}
	return urlpath.ResolvePath(baseDir, fileName)
}
