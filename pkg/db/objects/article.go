package objects

import (
	"github.com/iceymoss/kilovolt/pkg/utils"
)

// Author 对应数据库表 authors
type Author struct {
	ID        uint64  `gorm:"column:author_id;primaryKey;autoIncrement" json:"author_id"`
	Author    string  `gorm:"column:author;type:varchar(255);uniqueIndex;not null" json:"author"`
	AuthorURL *string `gorm:"column:authorUrl;type:varchar(255)" json:"authorUrl"`
}

// TableName 指定表名
func (Author) TableName() string {
	return "authors"
}

// Article 对应数据库表 articles
type Article struct {
	ID          uint64      `gorm:"column:article_id;primaryKey;autoIncrement" json:"article_id"`
	AuthorID    uint64      `gorm:"column:author_id;not null" json:"author_id"`
	Title       string      `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Category    *string     `gorm:"column:category;type:varchar(20)" json:"category"`
	PublishedOn *utils.Date `gorm:"column:publishedOn;type:date" json:"publishedOn"`
	Body        string      `gorm:"column:body;type:text;not null" json:"body"`
}

func (Article) TableName() string {
	return "articles"
}

// ArticleRow is one article joined with its author, flattened the way
// GET /articles returns it.
type ArticleRow struct {
	ID          uint64      `gorm:"column:article_id" json:"article_id"`
	AuthorID    uint64      `gorm:"column:author_id" json:"author_id"`
	Title       string      `gorm:"column:title" json:"title"`
	Category    *string     `gorm:"column:category" json:"category"`
	PublishedOn *utils.Date `gorm:"column:publishedOn" json:"publishedOn"`
	Body        string      `gorm:"column:body" json:"body"`
	Author      string      `gorm:"column:author" json:"author"`
	AuthorURL   *string     `gorm:"column:authorUrl" json:"authorUrl"`
}
