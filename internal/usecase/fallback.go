package usecase

import "strings"

// ゲスト用の埋め値
const (
	GuestName  = "Guest"
	GuestEmail = "guest@example.com"
	GuestPhone = "N/A"
)

// 優先度の高い順に並べた候補から、最初の空でない値を返す
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}
