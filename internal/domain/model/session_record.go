package model

import "time"

// セッション状態のKVレコード。カート・チェックアウト状態を
// 1キー1JSONで丸ごと上書き保存する。
type SessionRecord struct {
	Key       string    `gorm:"primaryKey;type:varchar(128)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
