package models

// MongoDbCollection is the name of a collection in our mongo database
type MongoDbCollection string

func (c MongoDbCollection) String() string {
	return string(c)
}
