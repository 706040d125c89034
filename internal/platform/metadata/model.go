package metadata

import "gorm.io/gorm"

// metadata表中使用的键
const (
	// LastSnapshotVotesKey 保存上次快照时的投票总数
	LastSnapshotVotesKey = "last_snapshot_votes"
	// LastSnapshotFileKey 保存上次快照的文件路径
	LastSnapshotFileKey = "last_snapshot_file"
)

// Metadata 用于存储系统级的键值对数据。
type Metadata struct {
	gorm.Model

	Key   string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Value string `gorm:"type:varchar(255)"`
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Metadata{})
}
