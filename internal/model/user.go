package model

// User は工数を記録するコンサルタントを表す。
// Passwordはどのレスポンスにもシリアライズされない。
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Password   string `json:"-"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	HourlyRate *int   `json:"hourlyRate"`
}

// UserInput はユーザー作成時の入力値。
type UserInput struct {
	Username   string
	Password   string
	Name       string
	Email      string
	HourlyRate *int
}
