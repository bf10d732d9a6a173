package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"expert_id",
			"from",
			"time_zone",
			"status",
			"is_open",
			"is_locked",
			"is_completed",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"expert_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"from": bson.M{
				"bsonType": "date",
			},

			"to": bson.M{
				"bsonType": "date",
			},

			"time_zone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"status": bson.M{
				"enum": []string{
					"pending",
					"accepted",
					"rejected",
					"confirmed",
					"cancelled",
				},
			},

			"is_open": bson.M{
				"bsonType": "bool",
			},

			"is_locked": bson.M{
				"bsonType": "bool",
			},

			"is_completed": bson.M{
				"bsonType": "bool",
			},

			"deposit_amount": bson.M{
				"bsonType": []string{"decimal", "double", "int", "long"},
				"minimum":  0,
			},

			"payment_intent_id": bson.M{
				"bsonType": "string",
			},

			"location": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"latitude": bson.M{
						"bsonType": "double",
						"minimum":  -90,
						"maximum":  90,
					},
					"longitude": bson.M{
						"bsonType": "double",
						"minimum":  -180,
						"maximum":  180,
					},
				},
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
