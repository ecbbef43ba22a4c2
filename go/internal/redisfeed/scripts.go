package redisfeed

import "github.com/go-redis/redis/v8"

// The scripts write and publish in one step so subscribers observe
// changes in write order. ARGV[1] of each script is the JSON-encoded room id.

// KEYS: statuses hash, changes channel. ARGV: room id json, user id, record json.
var upsertStatusScript = redis.NewScript(`
local created = redis.call('HSET', KEYS[1], ARGV[2], ARGV[3])
local kind = 'updated'
if created == 1 then
	kind = 'inserted'
end
redis.call('PUBLISH', KEYS[2],
	'{"table":"statuses","kind":"' .. kind .. '","room_id":' .. ARGV[1] .. ',"status":' .. ARGV[3] .. '}')
return kind
`)

// KEYS: statuses hash, changes channel. ARGV: room id json, user id.
// Returns the deleted record, nil when absent.
var deleteStatusScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[2])
if not old then
	return false
end
redis.call('HDEL', KEYS[1], ARGV[2])
redis.call('PUBLISH', KEYS[2],
	'{"table":"statuses","kind":"deleted","room_id":' .. ARGV[1] .. ',"status":' .. old .. '}')
return old
`)

// KEYS: room key, changes channel. ARGV: room id json, room json.
var upsertRoomScript = redis.NewScript(`
local kind = 'updated'
if redis.call('EXISTS', KEYS[1]) == 0 then
	kind = 'inserted'
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('PUBLISH', KEYS[2],
	'{"table":"rooms","kind":"' .. kind .. '","room_id":' .. ARGV[1] .. ',"room":' .. ARGV[2] .. '}')
return kind
`)
