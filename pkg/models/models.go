// Package models declares the catalog tables as tagged structs.
package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/nikixstore/storefront/pkg/schema"
)

func init() {
	schema.RegisterTableName("Product", "products")
	schema.RegisterTableName("User", "users")
	schema.RegisterTableName("BasketItem", "basket")
	schema.RegisterTableName("BasketLine", "basket_lines")
	schema.RegisterTableName("Order", "orders")
	schema.RegisterTableName("OrderItem", "order_items")
	schema.RegisterTableName("PhotoLinks", "photo_links")
	schema.RegisterTableName("DropAccess", "drop_access")
	schema.RegisterTableName("DropInfo", "drop_info")
}

// Product is one catalog entry. Article is the stable key.
type Product struct {
	ID         int64  `po:"id,primaryKey,bigserial"`
	Type       string `po:"type,varchar(30),notNull,index"`
	Name       string `po:"name,varchar(100),notNull,index"`
	Maker      string `po:"maker,varchar(30),notNull"`
	Material   string `po:"material,text,notNull"`
	Season     string `po:"season,text,notNull,index"`
	Brand      string `po:"brand,varchar(30),notNull,index"`
	Price      int    `po:"price,integer,notNull"`
	Article    string `po:"art,varchar(30),unique,notNull"`
	PhotoURL   string `po:"photo_url,text,notNull"`
	ChannelURL string `po:"channel_url,text,notNull"`
	SourceURL  string `po:"source_url,text,notNull"`
	IsDrop     int    `po:"is_drop,smallint,notNull,default(0)"`
	DropPrice  int    `po:"drop_price,integer,notNull,default(0)"`
}

// Drop reports whether the product belongs to the current drop.
func (p Product) Drop() bool {
	return p.IsDrop == 1
}

// HasPostLink reports whether the product links to a channel post.
// An empty link or "0" means no post was published.
func (p Product) HasPostLink() bool {
	return p.ChannelURL != "" && p.ChannelURL != "0"
}

// InSeason reports whether token is one of the product's season tokens.
func (p Product) InSeason(token string) bool {
	token = strings.TrimSpace(token)
	for _, t := range SeasonTokens(p.Season) {
		if t == token {
			return true
		}
	}
	return false
}

// SeasonTokens splits a comma-joined season set into its tokens.
func SeasonTokens(season string) []string {
	var tokens []string
	for _, t := range strings.Split(season, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// UnitPrice is the price charged for one unit. Drop products sell at the
// drop price while their drop is active.
func (p Product) UnitPrice() int {
	if p.Drop() && p.DropPrice != 0 {
		return p.DropPrice
	}
	return p.Price
}

// User is a buyer who has started the bot at least once.
type User struct {
	ID        int64     `po:"id,primaryKey,bigserial"`
	UserID    int64     `po:"user_id,bigint,unique,notNull"`
	UserName  string    `po:"user_name,varchar(64),notNull,index"`
	FirstName string    `po:"first_name,varchar(64),notNull"`
	CreatedAt time.Time `po:"created_at,timestamptz,notNull,default(NOW())"`
}

// BasketItem is one unit in a buyer's basket. Duplicates represent several units.
type BasketItem struct {
	ID      int64  `po:"id,primaryKey,bigserial"`
	UserID  int64  `po:"user_id,bigint,notNull,index"`
	Article string `po:"art,varchar(30),notNull,index"`
	Size    string `po:"size,varchar(16),notNull"`
}

// BasketLine is a basket row joined with its product.
type BasketLine struct {
	BasketID   int64  `po:"basket_id,bigint"`
	UserID     int64  `po:"user_id,bigint"`
	Article    string `po:"art,varchar(30)"`
	Size       string `po:"size,varchar(16)"`
	Name       string `po:"name,varchar(100)"`
	Brand      string `po:"brand,varchar(30)"`
	Price      int    `po:"price,integer"`
	DropPrice  int    `po:"drop_price,integer"`
	IsDrop     int    `po:"is_drop,smallint"`
	PhotoURL   string `po:"photo_url,text"`
	ChannelURL string `po:"channel_url,text"`
}

// Product rebuilds the product fields carried by the line.
func (l BasketLine) Product() Product {
	return Product{
		Article:    l.Article,
		Name:       l.Name,
		Brand:      l.Brand,
		Price:      l.Price,
		DropPrice:  l.DropPrice,
		IsDrop:     l.IsDrop,
		PhotoURL:   l.PhotoURL,
		ChannelURL: l.ChannelURL,
	}
}

// Order is a placed order. ID is internal; buyers see ID plus the display offset.
type Order struct {
	ID             int64     `po:"id,primaryKey,bigserial"`
	UserID         int64     `po:"user_id,bigint,notNull,index"`
	FullName       string    `po:"fio,text,notNull"`
	Phone          string    `po:"phone_number,varchar(20),notNull"`
	Address        string    `po:"address,text,notNull"`
	DeliveryMethod string    `po:"delivery_way,text,notNull"`
	Fitting        string    `po:"preview,varchar(50),notNull"`
	PayWay         string    `po:"pay_way,text,notNull"`
	Status         int       `po:"status,smallint,notNull,default(0)"`
	Comment        string    `po:"comment,text,notNull"`
	DeliveryPrice  int       `po:"delivery_price,integer,notNull"`
	MessageHandle  int64     `po:"message_from_channel,bigint,notNull,default(0)"`
	CreatedAt      time.Time `po:"when_buy,timestamptz,notNull,default(NOW()),index"`
}

// OrderItem is a point-in-time copy of one ordered unit.
type OrderItem struct {
	ID         int64  `po:"id,primaryKey,bigserial"`
	OrderID    int64  `po:"order_id,bigint,notNull,index"`
	Name       string `po:"name,text,notNull"`
	Article    string `po:"art,varchar(30),notNull"`
	Size       string `po:"size,varchar(16),notNull"`
	Price      int    `po:"price,integer,notNull"`
	ChannelURL string `po:"channel_url,text,notNull"`
}

// PhotoLinks holds the extra photos of an article.
type PhotoLinks struct {
	Article string `po:"art,varchar(30),primaryKey"`
	Photo2  string `po:"photo2_url,text,notNull"`
	Photo3  string `po:"photo3_url,text,notNull"`
	Photo4  string `po:"photo4_url,text,notNull"`
}

// DropAccess marks a user who entered the current drop password.
type DropAccess struct {
	UserID    int64     `po:"user_id,bigint,primaryKey"`
	GrantedAt time.Time `po:"granted_at,timestamptz,notNull,default(NOW())"`
}

// DropInfoID is the key of the single drop_info row.
const DropInfoID = 1

// DropInfo is the singleton description of the current drop cycle.
type DropInfo struct {
	ID        int    `po:"id,smallint,primaryKey"`
	Password  string `po:"password,text,notNull"`
	StartDate string `po:"start_date,text,notNull"`
	StopDate  string `po:"stop_date,text,notNull"`
}

// Tables lists every persisted model in creation order.
func Tables() []any {
	return []any{
		User{},
		Product{},
		BasketItem{},
		Order{},
		OrderItem{},
		PhotoLinks{},
		DropAccess{},
		DropInfo{},
	}
}

// FormatRub renders an amount in groups of three digits, e.g. 12 500.
func FormatRub(amount int) string {
	s := strconv.Itoa(amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
