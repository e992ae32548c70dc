package app

import "github.com/broady/typeof"

type Order struct {
	ID    string
	Buyer *User
	Lines []string
}

func OrderInfo() any { return typeof.Of[Order]() }

func Pair() (a, b any) { return typeof.Of[Order](), typeof.Of[typeof.And[Order, User]]() }
