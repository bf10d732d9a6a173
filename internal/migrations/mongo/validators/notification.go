package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"recipient",
			"payload",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"recipient": bson.M{
				"bsonType": "object",
				"required": []string{"kind", "id"},
				"properties": bson.M{
					"kind": bson.M{
						"enum": []string{"user", "expert"},
					},
					"id": bson.M{
						"bsonType":  "string",
						"minLength": 1,
					},
				},
			},

			"payload": bson.M{
				"bsonType": "object",
				"required": []string{"type", "message"},
				"properties": bson.M{
					"type": bson.M{
						"enum": []string{
							"new_request",
							"appointment_accepted",
							"appointment_rejected",
							"appointment_confirmed",
							"appointment_cancelled",
						},
					},
					"message": bson.M{
						"bsonType":  "string",
						"minLength": 1,
					},
				},
			},

			"channels": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"delivered_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
