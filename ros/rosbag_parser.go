// Package ros bridges the pipeline and ROS: it reads sensor_msgs/PointCloud2 messages
// out of rosbags and writes pipeline output back as PointCloud2 JSON lines.
package ros

import (
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// DefaultCloudTopic is the topic raw sensor clouds are published on.
const DefaultCloudTopic = "/sensor_stick/point_cloud"

// lineReader is satisfied by the per topic buffers rosbag fills with JSON lines.
type lineReader interface {
	ReadBytes(delim byte) ([]byte, error)
}

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// topicKey returns the key rosbag files the JSON messages of topic under.
func topicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// TopicMessages parses every message of topic in the bag to JSON and returns them one
// per line.
func TopicMessages(rb *rosbag.RosBag, topic string) (lineReader, error) {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return topicKey(t) == topicKey(topic) },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs, ok := rb.TopicsAsJSON[topicKey(topic)]
	if !ok || msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return msgs, nil
}
