package repository

import "context"

// セッション状態（カート・チェックアウト）のKVポート。
// 値はJSON文字列で、キーごとに丸ごと上書きする。
// 差し替え可能にしておくことでテストではメモリ実装を使う。
type SessionStore interface {
	//無ければ ErrNotFound
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
