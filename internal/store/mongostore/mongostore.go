// Package mongostore keeps the cafe state in MongoDB. Orders embed their
// items; payments use a multi-document transaction, so the server must run
// as a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tablesColl       = "tables"
	ordersColl       = "orders"
	transactionsColl = "transactions"
	menuColl         = "menu_items"
	settingsColl     = "settings"
	usersColl        = "users"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, pings the server and prepares indexes on database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(ctx, client, database)
}

// New uses an existing client and creates the indexes the queries rely on.
func New(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		ordersColl: {
			{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		transactionsColl: {
			{Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		usersColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	return err
}

// casMiss decides why a filtered update matched nothing.
func casMiss(ctx context.Context, c *mongo.Collection, id any) error {
	n, err := c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return model.ErrStale
}

func after() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// --- Tables ---

func (s *Store) CreateTable(ctx context.Context, t model.Table) (model.Table, error) {
	if _, err := s.coll(tablesColl).InsertOne(ctx, fromTable(t)); err != nil {
		return model.Table{}, err
	}
	return t, nil
}

func (s *Store) GetTable(ctx context.Context, id int32) (model.Table, error) {
	var d tableDoc
	if err := s.coll(tablesColl).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return model.Table{}, notFound(err)
	}
	return d.toModel(), nil
}

func (s *Store) ListTables(ctx context.Context) ([]model.Table, error) {
	cur, err := s.coll(tablesColl).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []tableDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Table, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

func (s *Store) UpdateTableStatus(ctx context.Context, id int32, from, to string) (model.Table, error) {
	c := s.coll(tablesColl)
	var d tableDoc
	err := c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		after(),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Table{}, casMiss(ctx, c, id)
	}
	if err != nil {
		return model.Table{}, err
	}
	return d.toModel(), nil
}

// --- Orders ---

func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	n, err := s.coll(tablesColl).CountDocuments(ctx, bson.M{"_id": o.TableID})
	if err != nil {
		return model.Order{}, err
	}
	if n == 0 {
		return model.Order{}, fmt.Errorf("table %d: %w", o.TableID, model.ErrNotFound)
	}
	d := fromOrder(o)
	if _, err := s.coll(ordersColl).InsertOne(ctx, d); err != nil {
		return model.Order{}, err
	}
	return d.toModel(), nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	var d orderDoc
	if err := s.coll(ordersColl).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return model.Order{}, notFound(err)
	}
	return d.toModel(), nil
}

func orderFilter(f model.OrderFilter) bson.M {
	filter := bson.M{}
	if f.TableID != 0 {
		filter["table_id"] = f.TableID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.UnpaidOnly {
		filter["paid_at"] = nil
	}
	return filter
}

func (s *Store) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	cur, err := s.coll(ordersColl).Find(ctx, orderFilter(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Order, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (model.Order, error) {
	c := s.coll(ordersColl)
	var d orderDoc
	err := c.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		after(),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Order{}, casMiss(ctx, c, id.String())
	}
	if err != nil {
		return model.Order{}, err
	}
	return d.toModel(), nil
}

// --- Transactions ---

// settleUpdate sets the payment fields and moves CompleteFrom to CompleteTo
// in one aggregation-pipeline update.
func settleUpdate(st model.Settlement) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "paid_at", Value: st.PaidAt},
			{Key: "transaction_id", Value: st.TransactionID.String()},
			{Key: "updated_at", Value: st.PaidAt},
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$status", st.CompleteFrom}}},
				st.CompleteTo,
				"$status",
			}}}},
		}}},
	}
}

func (s *Store) RecordPayment(ctx context.Context, tx model.Transaction, settle []model.Settlement) (model.Transaction, []model.Order, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	var settled []model.Order
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		settled = make([]model.Order, 0, len(settle))
		if _, err := s.coll(transactionsColl).InsertOne(sc, fromTransaction(tx)); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		orders := s.coll(ordersColl)
		for _, st := range settle {
			var d orderDoc
			err := orders.FindOneAndUpdate(sc,
				bson.M{"_id": st.OrderID.String(), "paid_at": nil},
				settleUpdate(st),
				after(),
			).Decode(&d)
			if errors.Is(err, mongo.ErrNoDocuments) {
				miss := casMiss(sc, orders, st.OrderID.String())
				if errors.Is(miss, model.ErrNotFound) {
					return nil, fmt.Errorf("order %s: %w", st.OrderID, miss)
				}
				return nil, miss
			}
			if err != nil {
				return nil, fmt.Errorf("settle order %s: %w", st.OrderID, err)
			}
			settled = append(settled, d.toModel())
		}
		return nil, nil
	})
	if err != nil {
		return model.Transaction{}, nil, err
	}
	return tx, settled, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	var d transactionDoc
	if err := s.coll(transactionsColl).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return model.Transaction{}, notFound(err)
	}
	return d.toModel(), nil
}

func transactionFilter(f model.TransactionFilter) bson.M {
	filter := bson.M{}
	if f.TableID != 0 {
		filter["table_id"] = f.TableID
	}
	if f.OrderID != nil {
		filter["order_id"] = f.OrderID.String()
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

func (s *Store) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll(transactionsColl).Find(ctx, transactionFilter(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

// --- Menu ---

func (s *Store) CreateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	if _, err := s.coll(menuColl).InsertOne(ctx, fromMenuItem(m)); err != nil {
		return model.MenuItem{}, err
	}
	return m, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	var d menuItemDoc
	if err := s.coll(menuColl).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return d.toModel(), nil
}

func (s *Store) ListMenuItems(ctx context.Context, category string) ([]model.MenuItem, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.coll(menuColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []menuItemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.MenuItem, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	d := fromMenuItem(m)
	var saved menuItemDoc
	err := s.coll(menuColl).FindOneAndUpdate(ctx,
		bson.M{"_id": d.ID},
		bson.M{"$set": bson.M{
			"name":       d.Name,
			"price":      d.Price,
			"category":   d.Category,
			"in_stock":   d.InStock,
			"updated_at": d.UpdatedAt,
		}},
		after(),
	).Decode(&saved)
	if err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return saved.toModel(), nil
}

// --- Settings ---

func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	var d settingsDoc
	if err := s.coll(settingsColl).FindOne(ctx, bson.M{"_id": settingsKey}).Decode(&d); err != nil {
		return model.Settings{}, notFound(err)
	}
	return d.toModel(), nil
}

func (s *Store) SaveSettings(ctx context.Context, st model.Settings) (model.Settings, error) {
	d := settingsDoc{
		ID:                settingsKey,
		TaxRate:           toDecimal128(st.TaxRate),
		ServiceChargeRate: toDecimal128(st.ServiceChargeRate),
		Currency:          st.Currency,
		CafeName:          st.CafeName,
		ReceiptFooter:     st.ReceiptFooter,
		UpdatedAt:         st.UpdatedAt,
	}
	_, err := s.coll(settingsColl).ReplaceOne(ctx, bson.M{"_id": settingsKey}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return model.Settings{}, err
	}
	return d.toModel(), nil
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	d := userDoc{
		ID:             u.ID.String(),
		Email:          strings.ToLower(u.Email),
		FullName:       u.FullName,
		HashedPassword: u.HashedPassword,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
	if _, err := s.coll(usersColl).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, fmt.Errorf("email %s: %w", d.Email, model.ErrDuplicate)
		}
		return model.User{}, err
	}
	return d.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var d userDoc
	if err := s.coll(usersColl).FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&d); err != nil {
		return model.User{}, notFound(err)
	}
	return d.toModel(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var d userDoc
	if err := s.coll(usersColl).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return model.User{}, notFound(err)
	}
	return d.toModel(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	cur, err := s.coll(usersColl).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.User, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}
