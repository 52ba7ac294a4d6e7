// Package redis stores sessions in Redis and serializes turns across replicas with a
// SET NX lock.
package redis
