package achievement

// Achievement 定义了一个达到累计点击阈值后解锁的成就。
// 成就是静态数据，启动时写入数据库后不再修改。
type Achievement struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `gorm:"type:varchar(100);not null" json:"title"`
	Description string `gorm:"type:varchar(255)" json:"description"`
	Emoji       string `gorm:"type:varchar(16)" json:"emoji"`
	Threshold   int64  `gorm:"uniqueIndex;not null" json:"threshold"`
}

// UserAchievement 记录用户已解锁的成就，(user_id, achievement_id) 唯一
type UserAchievement struct {
	ID            uint   `gorm:"primarykey"`
	UserID        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_achievement"`
	AchievementID uint   `gorm:"not null;uniqueIndex:idx_user_achievement"`
	UnlockedAt    int64  `gorm:"autoCreateTime"`
}

// Defaults 是默认的五个成就等级
func Defaults() []Achievement {
	return []Achievement{
		{Title: "SPAM Beginner", Description: "You sent your first SPAM!", Emoji: "🥉", Threshold: 1},
		{Title: "SPAM Enthusiast", Description: "You sent 10 SPAMs!", Emoji: "🥈", Threshold: 10},
		{Title: "SPAM Master", Description: "You sent 100 SPAMs!", Emoji: "🥇", Threshold: 100},
		{Title: "SPAM Legend", Description: "You sent 1,000 SPAMs!", Emoji: "👑", Threshold: 1000},
		{Title: "SPAM God", Description: "You sent 10,000 SPAMs!", Emoji: "🔱", Threshold: 10000},
	}
}
