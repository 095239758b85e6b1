package model

// DefaultProjectColor は色が指定されなかったプロジェクトの表示色。
const DefaultProjectColor = "#0ea5e9"

// Project は工数の記録先となる案件を表す。
type Project struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Client      *string `json:"client"`
	Color       string  `json:"color"`
	IsActive    bool    `json:"isActive"`
}

// ProjectInput はプロジェクトの作成・全置換更新で使用する入力値。
// デフォルト値の補完はサービス層で済ませてからリポジトリに渡す。
type ProjectInput struct {
	Name        string
	Description *string
	Client      *string
	Color       string
	IsActive    bool
}

// ClientGroup はクライアント名ごとにまとめたプロジェクト一覧。
type ClientGroup struct {
	Name     string    `json:"name"`
	Projects []Project `json:"projects"`
}
