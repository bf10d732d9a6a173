package validators

import "go.mongodb.org/mongo-driver/bson"

var RatingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"appointment_id",
			"expert_id",
			"user_id",
			"stars",
			"rated_by",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"appointment_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"expert_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"stars": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
				"maximum":  5,
			},

			"comment": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"low_rating_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"rated_by": bson.M{
				"enum": []string{"user", "expert"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
