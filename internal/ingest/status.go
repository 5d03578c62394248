package ingest

// FetchResult はHTTPステータスコードに基づく取得結果の分類。
type FetchResult int

const (
	// FetchResultOK は取得成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultGone は再試行しても回復しない応答（404/410/401/403）。
	FetchResultGone
	// FetchResultRetry は時間を置けば回復しうる応答（429/5xx）。
	FetchResultRetry
	// FetchResultUnknown はそれ以外のステータスコード。
	FetchResultUnknown
)

// String はメトリクスのラベルに使う名前を返す。
func (r FetchResult) String() string {
	switch r {
	case FetchResultOK:
		return "ok"
	case FetchResultGone:
		return "gone"
	case FetchResultRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// ClassifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 404 || statusCode == 410, statusCode == 401 || statusCode == 403:
		return FetchResultGone
	case statusCode == 429, statusCode >= 500:
		return FetchResultRetry
	default:
		return FetchResultUnknown
	}
}
