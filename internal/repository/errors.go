package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 一意制約違反（payment_referenceの二重登録など）
var ErrDuplicateKey = errors.New("duplicate key")
