package helpers

import (
	"reflect"

	"github.com/boostrole/boostrole/cache"
	"github.com/boostrole/boostrole/models"
	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
)

var (
	mDbSession  *mgo.Session
	mDbDatabase string
)

// ConnectMDB connects to mongodb and stores the session
func ConnectMDB(url string, database string) {
	var err error

	log := cache.GetLogger()
	log.WithField("module", "mdb").Info("Connecting to " + url)

	mgo.SetDebug(false)

	dialInfo, err := mgo.ParseURL(url)
	if err != nil {
		log.WithField("module", "mdb").Error(err.Error())
		panic(err)
	}

	mDbSession, err = mgo.DialWithInfo(dialInfo)
	if err != nil {
		log.WithField("module", "mdb").Error(err.Error())
		panic(err)
	}

	mDbSession.SetMode(mgo.Primary, false)
	mDbSession.SetSafe(&mgo.Safe{})

	mDbDatabase = database

	log.WithField("module", "mdb").Info("Connected!")
}

// GetMDb is a simple getter for the mongodb database.
func GetMDb() *mgo.Database {
	return mDbSession.DB(mDbDatabase)
}

// GetMDbSession is a simple getter for the mongodb session.
func GetMDbSession() *mgo.Session {
	return mDbSession
}

// EnsureIndexes creates the indexes the bot relies on. The unique index on
// boostrole entries is what makes the one-role-per-user quota atomic, the
// insert of a second entry fails with a duplicate key error instead of
// racing a separate count query.
func EnsureIndexes() error {
	err := MdbCollection(models.BoostRoleTable).EnsureIndex(mgo.Index{
		Key:    []string{"guildid", "userid"},
		Unique: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure boostrole entry index")
	}

	err = MdbCollection(models.BoostRoleSettingsTable).EnsureIndex(mgo.Index{
		Key:    []string{"guildid"},
		Unique: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure boostrole settings index")
	}

	return nil
}

func MDbInsert(collection models.MongoDbCollection, data interface{}) (rid bson.ObjectId, err error) {
	var recordData reflect.Value
	if reflect.ValueOf(data).Kind() != reflect.Ptr {
		// handle non pointers
		recordData = reflect.New(reflect.TypeOf(data)).Elem()
		recordData.Set(reflect.ValueOf(data))
	} else {
		// convert the raw interface data to its actual type
		recordData = reflect.ValueOf(data).Elem()
	}

	// confirm data has an ID field
	idField := recordData.FieldByName("ID")
	if !idField.IsValid() {
		return bson.ObjectId(""), errors.New("invalid data")
	}

	// if the records id field is empty, give it an id
	newID := idField.String()
	if newID == "" {
		newID = string(bson.NewObjectId())
		idField.SetString(newID)
	}

	err = GetMDb().C(collection.String()).Insert(recordData.Interface())
	if err != nil {
		return bson.ObjectId(""), err
	}

	return bson.ObjectId(newID), nil
}

func MDbUpdate(collection models.MongoDbCollection, id bson.ObjectId, data interface{}) (err error) {
	if !id.Valid() {
		return errors.New("invalid id")
	}

	return GetMDb().C(collection.String()).UpdateId(id, data)
}

func MDbUpsert(collection models.MongoDbCollection, selector interface{}, data interface{}) (err error) {
	_, err = GetMDb().C(collection.String()).Upsert(selector, data)

	return err
}

func MDbDelete(collection models.MongoDbCollection, id bson.ObjectId) (err error) {
	if !id.Valid() {
		return errors.New("invalid id")
	}

	return GetMDb().C(collection.String()).RemoveId(id)
}

func MdbDeleteQuery(collection models.MongoDbCollection, selector interface{}) (err error) {
	return GetMDb().C(collection.String()).Remove(selector)
}

// MdbDeleteAllQuery removes every document matching selector and reports how many got removed.
func MdbDeleteAllQuery(collection models.MongoDbCollection, selector interface{}) (removed int, err error) {
	info, err := GetMDb().C(collection.String()).RemoveAll(selector)
	if err != nil {
		return 0, err
	}

	return info.Removed, nil
}

func MdbCollection(collection models.MongoDbCollection) (query *mgo.Collection) {
	return GetMDb().C(collection.String())
}

func MDbIter(query *mgo.Query) (iter *mgo.Iter) {
	return query.Iter()
}

func MdbOne(query *mgo.Query, object interface{}) (err error) {
	return query.One(object)
}

func MdbCount(collection models.MongoDbCollection, query interface{}) (count int, err error) {
	return MdbCollection(collection).Find(query).Count()
}

func MdbIdToHuman(id bson.ObjectId) (text string) {
	return id.Hex()
}

func HumanToMdbId(text string) (id bson.ObjectId) {
	if bson.IsObjectIdHex(text) {
		return bson.ObjectIdHex(text)
	}

	return bson.ObjectId("")
}

func IsMdbNotFound(err error) (notFound bool) {
	return err == mgo.ErrNotFound
}

// IsMdbDup reports whether err is a unique index violation
func IsMdbDup(err error) (duplicate bool) {
	return mgo.IsDup(err)
}
