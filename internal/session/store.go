// Package session は MongoDB に保存するセッションストアと保存ポリシーを提供します。
package session

import (
	"context"
	"encoding/base32"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTTL は Cookie がブラウザセッション扱い（MaxAge=0）のときのドキュメント有効期間です。
const DefaultTTL = 14 * 24 * time.Hour

func init() {
	// フラッシュメッセージは []interface{} として保存される
	gob.Register([]interface{}{})
}

// document は sessions コレクションの1件を表します。
type document struct {
	ID      string    `bson:"_id"`
	Data    []byte    `bson:"session"`
	Expires time.Time `bson:"expires"`
}

type singleResult interface {
	Decode(v interface{}) error
}

// collection はテストで差し替えられるようにコレクション操作を抽象化したものです。
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) singleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// mongoCollection は *mongo.Collection を collection に適合させます。
type mongoCollection struct {
	*mongo.Collection
}

func (m mongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) singleResult {
	return m.Collection.FindOne(ctx, filter, opts...)
}

// MongoStore は gin-contrib/sessions から利用できる MongoDB バックエンドのストアです。
// Cookie にはセッションIDのみを署名付きで保存し、値はドキュメント側に保持します。
type MongoStore struct {
	Codecs []securecookie.Codec

	coll       collection
	options    *gsessions.Options
	serializer securecookie.GobEncoder
	now        func() time.Time
}

var _ sessions.Store = (*MongoStore)(nil)

// NewMongoStore はストアを作成し、expires の TTL インデックスを作成します。
func NewMongoStore(ctx context.Context, coll *mongo.Collection, keyPairs ...[]byte) (*MongoStore, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session TTL index: %w", err)
	}
	return newMongoStore(mongoCollection{Collection: coll}, keyPairs...), nil
}

func newMongoStore(coll collection, keyPairs ...[]byte) *MongoStore {
	s := &MongoStore{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		coll:   coll,
		now:    time.Now,
	}
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(DefaultTTL.Seconds()),
		HttpOnly: true,
	})
	return s
}

// Options は Cookie 属性を設定し、署名の有効期限を MaxAge に合わせます。
func (s *MongoStore) Options(opts sessions.Options) {
	s.options = opts.ToGorillaOptions()
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
}

// Get はリクエスト単位のレジストリからセッションを返します。
func (s *MongoStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New は Cookie からセッションを復元します。
// Cookie が無い、署名が不正、またはドキュメントが期限切れの場合は新しいセッションを返します。
func (s *MongoStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.Codecs...); err != nil {
		return session, nil
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save はセッションを保存して Cookie を書き込みます。MaxAge < 0 の場合は削除します。
func (s *MongoStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if _, err := s.coll.DeleteOne(r.Context(), bson.M{"_id": session.ID}); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = newSessionID()
	}

	data, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	_, err = s.coll.UpdateOne(r.Context(),
		bson.M{"_id": session.ID},
		bson.M{"$set": bson.M{"session": data, "expires": s.now().Add(ttl)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *MongoStore) load(ctx context.Context, id string, session *gsessions.Session) (bool, error) {
	var doc document
	// TTL モニターは60秒周期なので、期限切れドキュメントはここでも除外する
	err := s.coll.FindOne(ctx, bson.M{
		"_id":     id,
		"expires": bson.M{"$gt": s.now()},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if err := s.serializer.Deserialize(doc.Data, &session.Values); err != nil {
		return false, fmt.Errorf("failed to decode session: %w", err)
	}
	return true, nil
}

func newSessionID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}
