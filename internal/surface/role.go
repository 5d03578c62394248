// Package surface は実行コンテキストの役割判定と、コンソールからディスプレイへの
// 状態複製プロトコルを提供する。
package surface

import (
	"net/url"
	"strconv"
)

// ProjectorParam はディスプレイ役で起動されたことを示す起動パラメータ名。
const ProjectorParam = "projector"

// Role は実行コンテキストの役割。起動時に1度だけ決定し、以降は引き回す。
type Role int

const (
	// RoleConsole は編集可能で権威を持つコンソール。
	RoleConsole Role = iota
	// RoleDisplay は受動的に描画するディスプレイ。
	RoleDisplay
)

// String は役割名を返す。
func (r Role) String() string {
	switch r {
	case RoleDisplay:
		return "display"
	default:
		return "console"
	}
}

// DetectRole は起動パラメータから役割を判定する。
// projector=true の場合のみディスプレイ、それ以外（未指定を含む）はコンソール。
func DetectRole(params url.Values) Role {
	v := params.Get(ProjectorParam)
	if v == "" {
		return RoleConsole
	}
	on, err := strconv.ParseBool(v)
	if err != nil || !on {
		return RoleConsole
	}
	return RoleDisplay
}

// DisplayURL はベースURLにディスプレイ役の起動パラメータを付けたURLを返す。
func DisplayURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath(path)
	q := u.Query()
	q.Set(ProjectorParam, "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
