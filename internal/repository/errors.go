package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 割引コードの一意制約違反（同じコードが既にある）
var ErrDuplicateCode = errors.New("duplicate code")
