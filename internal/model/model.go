package model

import "time"

type User struct {
	Name         string
	Email        string
	EmployeeNo   string
	PasswordHash string
	Phone        *string
	DepartmentID int64
	Grade        string
	Position     *string
	RegDate      time.Time
	AccessToken  *string
	RefreshToken *string
	MustChangePW bool
}

type Department struct {
	ID     int64  `json:"DEPART_ID"`
	Name   string `json:"DEPART_NAME"`
	Active bool   `json:"-"`
}
