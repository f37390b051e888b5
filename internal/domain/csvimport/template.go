package csvimport

// Template is the sample import file offered for download.
const Template = "Student ID\n21100001\n21100002\n21100003\n21100004"
